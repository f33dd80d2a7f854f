package domain

// Citation is a web source the concierge grounded an answer on.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type ChatMessage struct {
	Role    string     `json:"role" validate:"oneof=user model"`
	Content string     `json:"content" validate:"required,max=4000"`
	Image   string     `json:"image,omitempty"`
	Sources []Citation `json:"sources,omitempty"`
}

const (
	ConciergeGreeting = "Namaste. I am your Sultan Concierge. How may I assist you with our heritage collections today?"
	ConciergeApology  = "I apologize, but I am having trouble connecting to the heritage archives. Please try again."
	StudioApology     = "Our artisans are busy. Please try again later."
)
