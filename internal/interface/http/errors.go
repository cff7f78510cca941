package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/readly/pkg/apperror"
	"github.com/oksasatya/readly/pkg/response"
)

// writeError renders a service error into the envelope. notFound overrides the
// status used for not-found errors on endpoints that report them as 400.
func writeError(c *gin.Context, err error, notFound int) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	if kind == apperror.KindNotFound && notFound != 0 {
		status = notFound
	}
	response.Error[any](c, status, apperror.MessageOf(err), gin.H{"kind": kind})
}
