package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleTrader = "trader"
)

type User struct {
	ID       string
	Username string
	Email    string
	Password string
	Role     string
	DtCreate time.Time
}
