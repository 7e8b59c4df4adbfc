// Package client holds the view model shared by the terminal client and the HTTP
// client used to reach the recipe endpoint.
package client

import (
	"net/http"
	"strings"
)

// State is the phase of the recipe view.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Messages shown by the view without a server round trip.
const (
	MessageEmptyInput = "Please enter some ingredients"
	MessageGeneric    = "Failed to generate recipe. Please try again."
)

// Response is the JSON body returned by the recipe endpoint.
type Response struct {
	Recipe string `json:"recipe,omitempty"`
	Note   string `json:"note,omitempty"`
	Error  string `json:"error,omitempty"`
}

// View tracks one user's interaction with the recipe form.
// At most one request is in flight at a time. A View is not safe for concurrent use.
type View struct {
	Input  string
	state  State
	recipe string
	note   string
	err    string
}

func NewView() *View {
	return &View{state: StateIdle}
}

func (v *View) State() State   { return v.state }
func (v *View) Recipe() string { return v.recipe }
func (v *View) Note() string   { return v.note }
func (v *View) Error() string  { return v.err }

// CanSubmit reports whether the submit control is enabled.
func (v *View) CanSubmit() bool {
	return v.state != StateSubmitting && strings.TrimSpace(v.Input) != ""
}

// Submit starts a request. It returns the trimmed ingredients to send and true,
// or false when nothing should be sent.
func (v *View) Submit() (string, bool) {
	if v.state == StateSubmitting {
		return "", false
	}

	ingredients := strings.TrimSpace(v.Input)
	if ingredients == "" {
		v.state = StateIdle
		v.err = MessageEmptyInput
		return "", false
	}

	v.state = StateSubmitting
	v.recipe = ""
	v.note = ""
	v.err = ""
	return ingredients, true
}

// Complete applies the endpoint's answer to the in-flight request.
func (v *View) Complete(status int, resp Response) {
	if v.state != StateSubmitting {
		return
	}

	if status == http.StatusOK {
		v.state = StateSuccess
		v.recipe = resp.Recipe
		v.note = resp.Note
		return
	}

	v.state = StateFailed
	v.err = resp.Error
	if v.err == "" {
		v.err = MessageGeneric
	}
}

// Fail records a transport failure for the in-flight request.
func (v *View) Fail(error) {
	if v.state != StateSubmitting {
		return
	}
	v.state = StateFailed
	v.err = MessageGeneric
}
