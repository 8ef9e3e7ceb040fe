package models

import "time"

// TokenExchangeRequest is the body of POST /api-set-token.
type TokenExchangeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenExchangeResponse is the backend's reply to the exchange call.
type TokenExchangeResponse struct {
	Token string `json:"token"`
}

// NewUserRequest is the body of POST /new-user, sent after sign-up and
// after a first federated sign-in.
type NewUserRequest struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhotoURL  string    `json:"photoUrl"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddToCartRequest is the body of POST /add-to-cart.
type AddToCartRequest struct {
	ClassID         string  `json:"classId"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	UserMail        string  `json:"userMail"`
	InstructorEmail string  `json:"instructorEmail"`
	Image           string  `json:"image"`
}

// InsertResponse carries the id of a newly inserted backend record.
type InsertResponse struct {
	InsertedID string `json:"insertedId"`
}

// CartItem is a pending enrollment as stored by the backend.
type CartItem struct {
	ID       string  `json:"_id"`
	ClassID  string  `json:"classId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	UserMail string  `json:"userMail"`
}

// Class is a marketplace class as returned by GET /classes.
type Class struct {
	ID              string  `json:"_id"`
	Name            string  `json:"name"`
	Image           string  `json:"image"`
	Price           float64 `json:"price"`
	AvailableSeats  int     `json:"availableSeats"`
	TotalEnrolled   int     `json:"totalEnrolled"`
	InstructorName  string  `json:"instructorName"`
	InstructorEmail string  `json:"instructorEmail"`
	Status          string  `json:"status"`
}

// SeatsLeft returns the number of open seats for the class.
func (c *Class) SeatsLeft() int {
	return c.AvailableSeats - c.TotalEnrolled
}

// Instructor is a marketplace instructor as returned by GET /instructors.
type Instructor struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
}

// ErrorResponse standard error format
type ErrorResponse struct {
	Error string `json:"error"`
}
