package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loadtest-server/models"
)

func ginErr(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: err.Error()})
}

func ginErrBadRequest(c *gin.Context, err error) {
	ginErr(c, http.StatusBadRequest, err)
}

func ginErrNotFound(c *gin.Context, err error) {
	ginErr(c, http.StatusNotFound, err)
}

func ginErrConflict(c *gin.Context, err error) {
	ginErr(c, http.StatusConflict, err)
}

func ginErrTooManyRequests(c *gin.Context, err error) {
	ginErr(c, http.StatusTooManyRequests, err)
}

func ginErrInternalServerError(c *gin.Context, err error) {
	ginErr(c, http.StatusInternalServerError, err)
}
