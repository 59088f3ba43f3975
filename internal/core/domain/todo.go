package domain

import "time"

// Todo is a single item on a user's list. OwnerID is always taken from the
// authenticated caller, never from client input.
type Todo struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoPatch carries a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title     *string
	Completed *bool
}

// IsEmpty reports whether the patch sets no field at all.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}
