package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondDomainFailure sends 422 {"errors": {"body": [...]}}.
func respondDomainFailure(c *gin.Context, failure DomainFailure) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"body": failureMessages(failure)}})
}

func failureMessages(failure DomainFailure) []string {
	switch f := failure.(type) {
	case AppError:
		return []string{f.Error()}
	case *ErrorList:
		return f.Messages()
	default:
		panic("unhandled domain failure type")
	}
}
