package transport

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/reminders/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type TaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"omitempty,oneof=pending completed"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string `json:"due_date"`
}

// ToTask converts the request into a domain task owned by userID.
func (r TaskRequest) ToTask(userID string) (*domain.Task, error) {
	due, err := parseDueDate(r.DueDate)
	if err != nil {
		return nil, err
	}
	return &domain.Task{
		UserID:      userID,
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Status:      r.Status,
		Priority:    domain.ParsePriority(r.Priority),
		DueDate:     due,
	}, nil
}

type MarkReadRequest struct {
	NotificationIDs []string `json:"notificationIds" validate:"required,min=1,max=500,dive,required"`
}

// Validate runs struct tag validation and reports the first failing field.
func Validate(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewError(domain.ErrCodeInvalid, "invalid field "+fe.Field()+": "+fe.Tag())
	}
	return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
}

// parseDueDate accepts RFC 3339 timestamps and bare calendar dates, which are read as UTC midnight.
func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, domain.NewError(domain.ErrCodeInvalid, "due_date must be RFC 3339 or YYYY-MM-DD")
}
