package models

import "time"

// RoomType categorises teaching spaces.
type RoomType string

const (
	RoomTypeClassroom   RoomType = "CLASSROOM"
	RoomTypeLab         RoomType = "LAB"
	RoomTypeSeminarHall RoomType = "SEMINAR_HALL"
	RoomTypeAuditorium  RoomType = "AUDITORIUM"
)

// Room represents a teaching space. Department is empty for shared rooms.
type Room struct {
	ID         string    `db:"id" json:"id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	Building   string    `db:"building" json:"building"`
	Floor      int       `db:"floor" json:"floor"`
	Type       RoomType  `db:"type" json:"type"`
	Capacity   int       `db:"capacity" json:"capacity"`
	Department string    `db:"department" json:"department"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
