package http

import (
	"errors"
	"net/http"

	"sale-products/internal/products/images"

	"github.com/gin-gonic/gin"
)

type ImageReader interface {
	Retrieve(name string) ([]byte, error)
}

type ImageHandler struct {
	images ImageReader
}

func NewImageHandler(r ImageReader) *ImageHandler {
	return &ImageHandler{images: r}
}

// DownloadImage godoc
// @Summary      Download an image
// @Tags         image
// @Produce      octet-stream
// @Param        name  path      string  true  "Image file name"
// @Success      200   {file}    binary
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/v1/image/{name} [get]
func (h *ImageHandler) DownloadImage(c *gin.Context) {
	data, err := h.images.Retrieve(c.Param("name"))
	if err != nil {
		switch {
		case errors.Is(err, images.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.Is(err, images.ErrInvalidName):
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to read image"})
		}
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
