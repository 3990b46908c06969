package store

import "errors"

var ErrNoSchedule = errors.New("no schedule snapshot")
