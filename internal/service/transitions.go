package service

import (
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

var transitions = map[models.Status][]models.Status{
	models.StatusSubmitted:  {models.StatusInProgress, models.StatusResolved, models.StatusClosed},
	models.StatusInProgress: {models.StatusResolved, models.StatusClosed},
	models.StatusResolved:   {models.StatusInProgress, models.StatusClosed},
	models.StatusClosed:     nil,
}

// CanTransition reports whether a complaint may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to models.Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to models.Status) error {
	if !CanTransition(from, to) {
		return errs.Transition(string(from), string(to))
	}
	return nil
}

// workerMaySet lists the only targets a worker may set.
func workerMaySet(s models.Status) bool {
	return s == models.StatusInProgress || s == models.StatusResolved
}
