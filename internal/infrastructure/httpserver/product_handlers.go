package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/httpserver/helpers"
)

const maxImageSize = 5 << 20

// productError maps service errors onto HTTP errors.
func (s *Server) productError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(err, product.ErrSlugTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, product.ErrInvalidProduct), errors.Is(err, product.ErrInvalidCursor):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.logger != nil {
		s.logger.WithError(err).WithField("path", c.Path()).Error("product request failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func (s *Server) listProducts(c echo.Context) error {
	var q product.ListQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	page, err := s.productService.List(c.Request().Context(), q)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) loadMoreProducts(c echo.Context) error {
	var q product.CursorQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if q.AfterCursor != "" && q.BeforeCursor != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "after_cursor and before_cursor are mutually exclusive")
	}
	page, err := s.productService.LoadMore(c.Request().Context(), q)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) getProduct(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	p, err := s.productService.GetByID(c.Request().Context(), id)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) createProduct(c echo.Context) error {
	var req product.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.productService.Create(c.Request().Context(), &req)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	var patch product.Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.productService.Update(c.Request().Context(), id, patch)
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.productService.Delete(c.Request().Context(), id); err != nil {
		return s.productError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// uploadProductImage accepts a multipart "file" and queues it for the image worker.
func (s *Server) uploadProductImage(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxImageSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds 5MB")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	if len(data) > maxImageSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds 5MB")
	}

	receipt, err := s.productService.UploadImageAsync(c.Request().Context(), id, ports.ImageUpload{
		Data:         data,
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get(echo.HeaderContentType),
	})
	if err != nil {
		return s.productError(c, err)
	}
	return c.JSON(http.StatusAccepted, receipt)
}
