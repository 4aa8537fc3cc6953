package models

type Todo struct {
	ID          int64
	Title       string
	Description string
	Priority    int
	Complete    bool
	OwnerID     int64
}
