package domain

// TranslationRequest is the body of a translate call.
type TranslationRequest struct {
	Text           string `json:"text" validate:"required,max=5000"`
	TargetLanguage string `json:"targetLanguage" validate:"required"`
}

type TranslationResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Presence tells whether a user currently has live connections.
type Presence struct {
	UserID      UserID `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}
