package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/api/model"
	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler 处理编辑会话请求
// 每次文本变更都会同步返回新的预览
type SessionHandler struct {
	sessions      *editor.Manager
	presentations *services.PresentationService
	logger        *logrus.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *editor.Manager, presentations *services.PresentationService) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		presentations: presentations,
		logger:        middleware.GetLogger(),
	}
}

// Open 打开编辑会话
// POST /api/sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var req model.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		invalidRequest(c, err)
		return
	}

	userID := middleware.UserID(c)
	var session *editor.Session
	if req.PresentationID == "" {
		session = h.sessions.Create(userID)
	} else {
		var err error
		session, err = h.presentations.Open(c.Request.Context(), h.sessions, userID, req.PresentationID)
		if err != nil {
			respondError(c, err, msgLoadFailed)
			return
		}
	}

	h.logger.WithFields(logrus.Fields{
		"session_id":           session.ID(),
		"presentation_id":      req.PresentationID,
		middleware.FieldUserID: userID,
	}).Info("Editing session opened")

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.SessionResponse(session.Snapshot())))
}

// Get 获取会话状态
// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionResponse(session.Snapshot())))
}

// Edit 编辑器变更事件，返回重新计算的预览
// PUT /api/sessions/:id/text
func (h *SessionHandler) Edit(c *gin.Context) {
	var req model.SessionTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionResponse(session.Edit(*req.Markdown))))
}

// Rename 修改标题
// PUT /api/sessions/:id/title
func (h *SessionHandler) Rename(c *gin.Context) {
	var req model.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionResponse(session.Rename(req.Title))))
}

// Save 保存会话内容
// POST /api/sessions/:id/save
func (h *SessionHandler) Save(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	action := services.MsgSaveFailed
	if session.Snapshot().PresentationID == "" {
		action = services.MsgCreateFailed
	}

	snap, err := h.presentations.Save(c.Request.Context(), session)
	if err != nil {
		respondError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionResponse(snap)))
}

// Close 关闭会话，未保存的修改会丢失
// DELETE /api/sessions/:id
func (h *SessionHandler) Close(c *gin.Context) {
	id := c.Param("id")
	if err := h.sessions.Close(id, middleware.UserID(c)); err != nil {
		respondError(c, err, "Failed to close session")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DeleteResponse{
		Success: true,
		ID:      id,
	}))
}

func (h *SessionHandler) session(c *gin.Context) (*editor.Session, bool) {
	session, err := h.sessions.Get(c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Failed to load session")
		return nil, false
	}
	return session, true
}
