package sampleapp

import "sampleapp/db"

// Run wires the sample application together.
func Run() error {
	return db.SaveUser(db.User{Name: "demo"})
}

func setup() {}
