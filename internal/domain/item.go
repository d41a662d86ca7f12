package domain

// Item is a catalog entry with a fixed number of physical copies.
type Item struct {
	ID          int64  `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	TotalCopies int    `json:"total_copies" db:"total_copies"`
	Active      bool   `json:"active" db:"active"`
	Popularity  int    `json:"popularity" db:"popularity"`
}

// Available returns how many copies are free given the number currently checked out.
func (i *Item) Available(checkedOut int) int {
	return i.TotalCopies - checkedOut
}
