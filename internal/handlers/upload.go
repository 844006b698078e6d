package handlers

import (
	"errors"
	"io"
	"net/http"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/dto"
	"todocalendar/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// isPatch reports whether the request is a partial update.
func isPatch(c *gin.Context) bool {
	return c.Request.Method == http.MethodPatch
}

// upload reads the "file" form field and hands it to save.
func upload(c *gin.Context, logger *log.Logger, save func(filename string, r io.Reader) (dom.Attachment, error)) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			verr := &service.ValidationError{}
			verr.Add("file", "No file was submitted.")
			respondError(c, logger, verr)
			return
		}
		respondError(c, logger, badRequest{msg: err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, logger, err)
		return
	}
	defer f.Close()

	a, err := save(fh.Filename, f)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAttachmentResponse(a))
}
