package api

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"impostor-server/internal/core"
)

// Request schemas, validated before any room is touched.

type CreateRoomRequest struct {
	Username string `json:"username" validate:"required,username"`
}

type JoinRoomRequest struct {
	Username string `json:"username" validate:"required,username"`
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
}

type RoomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
}

type UpdateConfigRequest struct {
	RoomCode string           `json:"roomCode" validate:"required,roomcode"`
	Config   core.ConfigPatch `json:"config"`
}

type VoteRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	VotedFor string `json:"votedFor" validate:"required,max=64"`
}

type ChatRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	Message  string `json:"message" validate:"required,min=1,max=100"`
}

type ReactionRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	Emoji    string `json:"emoji" validate:"required,max=16"`
}

var usernameCharset = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// Usernames: 2-15 chars after trimming, letters/digits/spaces only,
// and at least one letter.
func validUsername(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if len(s) < 2 || len(s) > 15 {
		return false
	}
	if !usernameCharset.MatchString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func validRoomCode(fl validator.FieldLevel) bool {
	return len(strings.TrimSpace(fl.Field().String())) == 4
}

// NewValidator builds the validator instance with the game's custom
// rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", validUsername)
	_ = v.RegisterValidation("roomcode", validRoomCode)
	return v
}

// normalizeCode uppercases a trimmed room code; codes are generated
// from an uppercase alphabet.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
