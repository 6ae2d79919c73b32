package models

// Card is a vocabulary card with its scheduler state.
type Card struct {
	ID              ID        `json:"id"`
	UserID          ID        `json:"user_id"`
	Word            string    `json:"word"`
	Meaning         string    `json:"meaning"`
	ExampleSentence string    `json:"example_sentence"`
	DueDate         Timestamp `json:"due_date"`
	Stability       float64   `json:"stability"`
	Difficulty      float64   `json:"difficulty"`
	ElapsedDays     int64     `json:"elapsed_days"`
	ScheduledDays   int64     `json:"scheduled_days"`
	Reps            int64     `json:"reps"`
	Lapses          int64     `json:"lapses"`
	State           int       `json:"state"`
	LastReview      Timestamp `json:"last_review"`
	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
}

// ReviewLog records one grading of a card.
type ReviewLog struct {
	ID            ID        `json:"id"`
	CardID        ID        `json:"card_id"`
	UserID        ID        `json:"user_id"`
	ReviewDate    Timestamp `json:"review_date"`
	Rating        int       `json:"rating"`
	ElapsedDays   int64     `json:"elapsed_days"`
	ScheduledDays int64     `json:"scheduled_days"`
	State         int       `json:"state"`
	DueDate       Timestamp `json:"due_date"`
	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
}

// User is the profile record of an account. Its ID is the account ID.
type User struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Ref identifies a row to delete. UserID is optional.
type Ref struct {
	ID     ID `json:"id"`
	UserID ID `json:"user_id"`
}

// Tombstone remembers a server-side delete so that other devices of the
// same account learn about it on their next pull.
type Tombstone struct {
	TableName string
	ID        ID
	UserID    ID
	DeletedAt Timestamp
}

// Owner returns the account the row belongs to. Implemented by every entity.
func (c Card) Owner() ID      { return c.UserID }
func (r ReviewLog) Owner() ID { return r.UserID }
func (u User) Owner() ID      { return u.ID }
