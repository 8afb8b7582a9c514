package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"curabot/internal/account"
	"curabot/internal/helper"
	"curabot/internal/models"
	"curabot/internal/session"
)

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

type answerResponse struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	AnswerHTML string `json:"answer_html,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Degraded   bool   `json:"degraded"`
}

type reportResponse struct {
	Name   string          `json:"name"`
	Chunks int             `json:"chunks"`
	Answer *answerResponse `json:"answer,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	providers := s.providers
	if providers == nil {
		providers = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": providers})
}

func (s *Server) signUp(c *gin.Context) {
	var req account.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := s.accounts.SignUp(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Account created, please log in", "email": user.Email})
}

func (s *Server) login(c *gin.Context) {
	var req account.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.accounts.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt.UTC().Format(time.RFC3339),
		"first_name": res.Session.FirstName,
	})
}

func (s *Server) logout(c *gin.Context) {
	s.accounts.Logout(currentSession(c).ID)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) profile(c *gin.Context) {
	sess := currentSession(c)
	_, reportName := sess.Report()
	c.JSON(http.StatusOK, gin.H{
		"first_name": sess.FirstName,
		"email":      sess.Email,
		"mode":       sess.Mode(),
		"report":     reportName,
	})
}

// answerContext detaches an answer cycle from client disconnects. Providers
// are still bounded by their own timeouts.
func answerContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func bindQuestion(c *gin.Context) (string, bool) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return "", false
	}
	return strings.TrimSpace(req.Question), true
}

func (s *Server) askGeneral(c *gin.Context) {
	question, ok := bindQuestion(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	end := sess.BeginTurn()
	defer end()

	sess.SetMode(models.ModeGeneral)
	resp := s.rag.Ask(answerContext(c), question)
	c.JSON(http.StatusOK, record(sess, models.ModeGeneral, resp))
}

func (s *Server) askReport(c *gin.Context) {
	question, ok := bindQuestion(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	end := sess.BeginTurn()
	defer end()

	sess.SetMode(models.ModeReport)
	idx, _ := sess.Report()
	if idx == nil {
		writeError(c, errNoReport)
		return
	}
	resp, err := s.rag.Query(answerContext(c), idx, question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record(sess, models.ModeReport, resp))
}

// uploadReport indexes a PDF and, when a question is attached, answers it
func (s *Server) uploadReport(c *gin.Context) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	if limit > 0 {
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("report exceeds %d MB", s.cfg.MaxUploadMB)})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	if !isPDFUpload(header) {
		writeError(c, &models.ExtractionError{Reason: "only PDF reports are supported"})
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeError(c, err)
		return
	}
	question := strings.TrimSpace(c.Request.FormValue("question"))

	sess := currentSession(c)
	end := sess.BeginTurn()
	defer end()

	ctx := answerContext(c)
	idx, err := s.rag.IndexReport(ctx, buf.Bytes())
	if err != nil {
		writeError(c, err)
		return
	}
	sess.SetReport(idx, header.Filename)
	sess.SetMode(models.ModeReport)
	log.Info().Str("session", sess.ID).Str("file", header.Filename).Int("chunks", idx.Len()).Msg("Report uploaded")

	out := reportResponse{Name: header.Filename, Chunks: idx.Len()}
	if question == "" {
		c.JSON(http.StatusCreated, out)
		return
	}

	resp, err := s.rag.Query(ctx, idx, question)
	if err != nil {
		writeError(c, err)
		return
	}
	answer := record(sess, models.ModeReport, resp)
	out.Answer = &answer
	c.JSON(http.StatusCreated, out)
}

func isPDFUpload(header *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return true
	}
	return strings.HasPrefix(header.Header.Get("Content-Type"), "application/pdf")
}

func (s *Server) history(mode models.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		turns := currentSession(c).History(mode)
		c.JSON(http.StatusOK, gin.H{"mode": mode, "turns": turns})
	}
}

func (s *Server) exportHistory(c *gin.Context) {
	mode, ok := models.ParseMode(c.Param("mode"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown mode"})
		return
	}
	sess := currentSession(c)

	title := "CuraBot general questions"
	if mode == models.ModeReport {
		title = "CuraBot report questions"
	}
	var buf bytes.Buffer
	if err := session.ExportPDF(&buf, title, sess.History(mode)); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="curabot-%s-history.pdf"`, mode))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// record appends the answered question to the session transcript
func record(sess *session.Session, mode models.Mode, resp *models.PromptResponse) answerResponse {
	sess.Append(mode, session.Turn{
		Question: resp.Query,
		Answer:   resp.Content,
		Provider: resp.Provider,
	})

	out := answerResponse{
		Question: resp.Query,
		Answer:   resp.Content,
		Provider: resp.Provider,
		Degraded: resp.Degraded,
	}
	html, err := helper.RenderMarkdown(resp.Content)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to render answer markdown")
	} else {
		out.AnswerHTML = html
	}
	return out
}
