package lms

import "github.com/google/uuid"

// NewID returns a fresh entity ID. All tables key on TEXT ids.
func NewID() string { return uuid.NewString() }

func newID() string { return NewID() }
