package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/csvsearch/internal/pkg/response"
	"github.com/xxxsen/csvsearch/internal/session"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// New issues a fresh session token. Nothing is stored server side.
func (h *SessionHandler) New(c *gin.Context) {
	response.Success(c, gin.H{"session_id": session.NewToken()})
}
