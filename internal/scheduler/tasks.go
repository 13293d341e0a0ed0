package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReservationExpire = "leads.reservation.expire"

type ReservationExpirePayload struct {
	LeadID string `json:"leadId"`
}

func NewReservationExpireTask(payload ReservationExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationExpire, data), nil
}

func ParseReservationExpirePayload(task *asynq.Task) (ReservationExpirePayload, error) {
	var payload ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReservationExpirePayload{}, err
	}
	return payload, nil
}
