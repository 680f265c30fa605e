package validator

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotInput struct {
	Date string `json:"date" validate:"required,slotdate"`
	Time string `json:"time" validate:"required,slottime"`
}

type bookingInput struct {
	Slots  []slotInput `json:"slots" validate:"required,min=1,dive"`
	Amount float64     `json:"amount" validate:"gt=0,money2dp"`
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestSlotTags(t *testing.T) {
	v := newValidate(t)

	ok := bookingInput{Slots: []slotInput{{Date: "2030-01-02", Time: "09:30"}}, Amount: 10}
	assert.NoError(t, v.Struct(ok))

	for _, bad := range []slotInput{
		{Date: "2030-1-2", Time: "09:30"},
		{Date: "02/01/2030", Time: "09:30"},
		{Date: "2030-02-30", Time: "09:30"},
		{Date: "2030-01-02", Time: "9:30"},
		{Date: "2030-01-02", Time: "24:00"},
	} {
		err := v.Struct(bookingInput{Slots: []slotInput{bad}, Amount: 10})
		assert.Error(t, err, "%+v", bad)
	}
}

func TestMoney2dp(t *testing.T) {
	v := newValidate(t)
	for amount, valid := range map[float64]bool{
		100:       true,
		0.1:       true,
		49999.99:  true,
		10.005:    false,
		49999.995: false,
	} {
		err := v.Struct(bookingInput{Slots: []slotInput{{Date: "2030-01-02", Time: "10:00"}}, Amount: amount})
		assert.Equal(t, valid, err == nil, "%v", amount)
	}
}

func TestTranslate(t *testing.T) {
	v := newValidate(t)
	err := v.Struct(bookingInput{Slots: []slotInput{{Date: "bad", Time: "10:00"}}, Amount: 1.234})
	require.Error(t, err)

	got := Translate(err)
	assert.ElementsMatch(t, []FieldError{
		{Field: "slots[0].date", Message: "must be a date in YYYY-MM-DD format"},
		{Field: "amount", Message: "must have at most two decimal places"},
	}, got)

	var target struct {
		Amount float64 `json:"amount"`
	}
	err = json.Unmarshal([]byte(`{"amount":"ten"}`), &target)
	assert.Equal(t, []FieldError{{Field: "amount", Message: "has the wrong type"}}, Translate(err))

	err = json.Unmarshal([]byte(`{`), &target)
	assert.Equal(t, []FieldError{{Message: "malformed request body"}}, Translate(err))
}
