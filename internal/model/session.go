package model

import "time"

type Session struct {
	UserID         int64
	UID            string
	AuthValid      bool
	AuthExpiration time.Time
}
