// Package scheduler computes the next review state of a card. The
// algorithm itself is delegated to go-fsrs; this package only maps fields.
package scheduler

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/models"
	fsrs "github.com/open-spaced-repetition/go-fsrs/v3"
)

// Ratings accepted by Next.
const (
	Again = int(fsrs.Again)
	Hard  = int(fsrs.Hard)
	Good  = int(fsrs.Good)
	Easy  = int(fsrs.Easy)
)

// Scheduler grades a card. The returned card carries the new scheduling
// fields; the returned log has no id yet.
type Scheduler interface {
	Next(card models.Card, rating int, now time.Time) (models.Card, models.ReviewLog, error)
}

type FSRS struct {
	f *fsrs.FSRS
}

func NewFSRS() *FSRS {
	return &FSRS{f: fsrs.NewFSRS(fsrs.DefaultParam())}
}

// NewCardState returns the scheduling fields of a never reviewed card.
func NewCardState(c models.Card, now time.Time) models.Card {
	c.DueDate = models.NewTimestamp(now)
	c.Stability = 0
	c.Difficulty = 0
	c.ElapsedDays = 0
	c.ScheduledDays = 0
	c.Reps = 0
	c.Lapses = 0
	c.State = int(fsrs.New)
	c.LastReview = models.Timestamp{}
	return c
}

func (s *FSRS) Next(c models.Card, rating int, now time.Time) (models.Card, models.ReviewLog, error) {
	if rating < Again || rating > Easy {
		return models.Card{}, models.ReviewLog{}, fmt.Errorf("rating %d out of range %d..%d", rating, Again, Easy)
	}

	info, ok := s.f.Repeat(toFSRS(c), now)[fsrs.Rating(rating)]
	if !ok {
		return models.Card{}, models.ReviewLog{}, fmt.Errorf("no schedule for rating %d", rating)
	}

	ts := models.NewTimestamp(now)
	next := c
	next.DueDate = models.NewTimestamp(info.Card.Due)
	next.Stability = info.Card.Stability
	next.Difficulty = info.Card.Difficulty
	next.ElapsedDays = int64(info.Card.ElapsedDays)
	next.ScheduledDays = int64(info.Card.ScheduledDays)
	next.Reps = int64(info.Card.Reps)
	next.Lapses = int64(info.Card.Lapses)
	next.State = int(info.Card.State)
	next.LastReview = ts
	next.UpdatedAt = ts

	log := models.ReviewLog{
		CardID:        c.ID,
		UserID:        c.UserID,
		ReviewDate:    ts,
		Rating:        rating,
		ElapsedDays:   int64(info.ReviewLog.ElapsedDays),
		ScheduledDays: int64(info.ReviewLog.ScheduledDays),
		State:         int(info.ReviewLog.State),
		DueDate:       c.DueDate,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	return next, log, nil
}

func toFSRS(c models.Card) fsrs.Card {
	return fsrs.Card{
		Due:           c.DueDate.Time,
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   uint64(max(c.ElapsedDays, 0)),
		ScheduledDays: uint64(max(c.ScheduledDays, 0)),
		Reps:          uint64(max(c.Reps, 0)),
		Lapses:        uint64(max(c.Lapses, 0)),
		State:         fsrs.State(c.State),
		LastReview:    c.LastReview.Time,
	}
}
