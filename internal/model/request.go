package model

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

type CommentCreateRequest struct {
	Author  string `json:"author" validate:"required,min=1,max=50"`
	Email   string `json:"email" validate:"omitempty,email,max=100"`
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

type CommentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=normal hidden flagged"`
}

type ArticleRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Category    string `json:"category" validate:"max=50"`
	Tags        string `json:"tags" validate:"max=200"`
	Cover       string `json:"cover" validate:"omitempty,max=200"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	ContentType string `json:"content_type" validate:"omitempty,oneof=markdown pdf"`
	PDFFilename string `json:"pdf_filename" validate:"omitempty,max=200"`
}

type SkillRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Level       int    `json:"level" validate:"min=0,max=100"`
}

type ContactRequest struct {
	Type  string `json:"type" validate:"required,max=50"`
	Value string `json:"value" validate:"required,max=200"`
}

type SuggestRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type ArticleFilter struct {
	Category string
	Tag      string
	Page     int
	Limit    int
}
