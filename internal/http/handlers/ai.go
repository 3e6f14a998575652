package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"inkwell/internal/providers/media"
	"inkwell/internal/providers/prompt"
)

const (
	defaultArticleTokens = 800
	blogTitleTokens      = 100
	resumeReviewTokens   = 1000

	resumePromptPrefix = "Review the following resume and provide constructive feedback:\n\n"
)

type generateArticleRequest struct {
	Prompt string `json:"prompt" validate:"required,min=3"`
	Length int    `json:"length" validate:"omitempty,min=1,max=4000"`
}

// GenerateArticle writes a long-form article for the prompt. Free-tier
// eligible up to the quota.
func (a *App) GenerateArticle(w http.ResponseWriter, r *http.Request) {
	auth, ok := a.admit(w, r, toolArticle)
	if !ok {
		return
	}
	var req generateArticleRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.invalidInput(w, toolArticle, "prompt is required")
		return
	}
	maxTokens := req.Length
	if maxTokens <= 0 {
		maxTokens = defaultArticleTokens
	}
	content, err := a.Completer.Complete(r.Context(), prompt.CompletionRequest{
		Prompt:    req.Prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		a.providerFailed(w, toolArticle, err)
		return
	}
	if _, err := a.record(r.Context(), auth, toolArticle, req.Prompt, content, false); err != nil {
		a.Logger.Error().Err(err).Msg("persist article creation failed")
		a.fail(w, http.StatusInternalServerError, "failed to save creation")
		return
	}
	a.json(w, http.StatusOK, contentResponse{Success: true, Content: content})
}

type generateBlogTitleRequest struct {
	Prompt string `json:"prompt" validate:"required,min=3"`
}

// GenerateBlogTitle suggests blog titles for a topic. Free-tier eligible up
// to the quota.
func (a *App) GenerateBlogTitle(w http.ResponseWriter, r *http.Request) {
	auth, ok := a.admit(w, r, toolBlogTitle)
	if !ok {
		return
	}
	var req generateBlogTitleRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.invalidInput(w, toolBlogTitle, "prompt is required")
		return
	}
	content, err := a.Completer.Complete(r.Context(), prompt.CompletionRequest{
		Prompt:    req.Prompt,
		MaxTokens: blogTitleTokens,
	})
	if err != nil {
		a.providerFailed(w, toolBlogTitle, err)
		return
	}
	if _, err := a.record(r.Context(), auth, toolBlogTitle, req.Prompt, content, false); err != nil {
		a.Logger.Error().Err(err).Msg("persist blog title creation failed")
		a.fail(w, http.StatusInternalServerError, "failed to save creation")
		return
	}
	a.json(w, http.StatusOK, contentResponse{Success: true, Content: content})
}

type generateImageRequest struct {
	Prompt  string `json:"prompt" validate:"required,min=3"`
	Publish bool   `json:"publish"`
}

// GenerateImage renders an image for the prompt, stores it on the media CDN
// and optionally publishes it to the community feed. Pro only.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	auth, ok := a.admit(w, r, toolImage)
	if !ok {
		return
	}
	var req generateImageRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.invalidInput(w, toolImage, "prompt is required")
		return
	}
	imageData, err := a.Images.Generate(r.Context(), req.Prompt)
	if err != nil {
		a.providerFailed(w, toolImage, err)
		return
	}
	uploaded, err := a.Media.UploadImage(r.Context(), media.UploadRequest{Data: imageData, MIME: "image/png"})
	if err != nil {
		a.providerFailed(w, toolImage, err)
		return
	}
	if _, err := a.record(r.Context(), auth, toolImage, req.Prompt, uploaded.SecureURL, req.Publish); err != nil {
		a.Logger.Error().Err(err).Msg("persist image creation failed")
		a.fail(w, http.StatusInternalServerError, "failed to save creation")
		return
	}
	a.json(w, http.StatusOK, imageResponse{Success: true, SecureURL: uploaded.SecureURL})
}

// RemoveImageBackground uploads the image with the background-removal
// transform applied on the media CDN. Pro only.
func (a *App) RemoveImageBackground(w http.ResponseWriter, r *http.Request) {
	auth, ok := a.admit(w, r, toolBackground)
	if !ok {
		return
	}
	up, err := a.readUpload(w, r, "image")
	if err != nil {
		a.invalidInput(w, toolBackground, err.Error())
		return
	}
	uploaded, err := a.Media.UploadImage(r.Context(), media.UploadRequest{
		Data:           up.data,
		MIME:           up.mime,
		Transformation: media.TransformBackgroundRemoval,
	})
	if err != nil {
		a.providerFailed(w, toolBackground, err)
		return
	}
	if _, err := a.record(r.Context(), auth, toolBackground, "remove background from image", uploaded.SecureURL, false); err != nil {
		a.Logger.Error().Err(err).Msg("persist background removal creation failed")
		a.fail(w, http.StatusInternalServerError, "failed to save creation")
		return
	}
	a.json(w, http.StatusOK, contentResponse{Success: true, Content: uploaded.SecureURL})
}

// RemoveImageObject erases a named object from the uploaded image via the
// media CDN's generative transform. Pro only.
func (a *App) RemoveImageObject(w http.ResponseWriter, r *http.Request) {
	auth, ok := a.admit(w, r, toolObject)
	if !ok {
		return
	}
	up, err := a.readUpload(w, r, "image")
	if err != nil {
		a.invalidInput(w, toolObject, err.Error())
		return
	}
	object := strings.TrimSpace(r.FormValue("object"))
	if object == "" {
		a.invalidInput(w, toolObject, "object is required")
		return
	}
	uploaded, err := a.Media.UploadImage(r.Context(), media.UploadRequest{Data: up.data, MIME: up.mime})
	if err != nil {
		a.providerFailed(w, toolObject, err)
		return
	}
	resultURL := a.Media.DeliveryURL(uploaded.PublicID, media.ObjectRemoval(object))
	promptText := fmt.Sprintf("remove %s from image", object)
	if _, err := a.record(r.Context(), auth, toolObject, promptText, resultURL, false); err != nil {
		a.Logger.Error().Err(err).Msg("persist object removal creation failed")
		a.fail(w, http.StatusInternalServerError, "failed to save creation")
		return
	}
	a.json(w, http.StatusOK, contentResponse{Success: true, Content: resultURL})
}

// ResumeReview extracts the text of an uploaded PDF resume and asks the LLM
// for structured feedback. Pro only.
func (a *App) ResumeReview(w http.ResponseWriter, r *http.Request) {
	auth, ok := a.admit(w, r, toolResume)
	if !ok {
		return
	}
	up, err := a.readUpload(w, r, "resume")
	if err != nil {
		a.invalidInput(w, toolResume, err.Error())
		return
	}
	text, err := a.Resumes.Extract(up.data)
	if err != nil {
		a.invalidInput(w, toolResume, "could not read the uploaded resume")
		return
	}
	promptText := resumePromptPrefix + text
	content, err := a.Completer.Complete(r.Context(), prompt.CompletionRequest{
		Prompt:    promptText,
		MaxTokens: resumeReviewTokens,
	})
	if err != nil {
		a.providerFailed(w, toolResume, err)
		return
	}
	if _, err := a.record(r.Context(), auth, toolResume, promptText, content, false); err != nil {
		a.Logger.Error().Err(err).Msg("persist resume review creation failed")
		a.fail(w, http.StatusInternalServerError, "failed to save creation")
		return
	}
	a.json(w, http.StatusOK, contentResponse{Success: true, Content: content})
}
