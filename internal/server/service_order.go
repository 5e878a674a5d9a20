package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/journalpay/internal/authorization"
	"github.com/smallbiznis/journalpay/internal/payable"
	serviceorderdomain "github.com/smallbiznis/journalpay/internal/serviceorder/domain"
	"github.com/smallbiznis/journalpay/pkg/db/pagination"
)

type placeServiceOrderRequest struct {
	ServiceID string         `json:"service_id"`
	FormData  map[string]any `json:"form_data"`
}

type assignUDCRequest struct {
	UDCCode string `json:"udc_code"`
}

type assignWriterRequest struct {
	WriterID string `json:"writer_id"`
}

func (s *Server) PlaceServiceOrder(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req placeServiceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	serviceID, err := parseSnowflakeID(req.ServiceID)
	if err != nil {
		AbortWithError(c, serviceorderdomain.ErrInvalidService)
		return
	}

	resp, err := s.serviceOrderSvc.Place(c.Request.Context(), serviceorderdomain.PlaceRequest{
		UserID:    actor.ID,
		ServiceID: serviceID,
		FormData:  req.FormData,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetServiceOrder(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.serviceOrderSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	// Writers see the queue, so they may open any order.
	if actor.Role != authorization.RoleWriter && !canView(actor, &order.UserID, order.AssignedWriterID) {
		AbortWithError(c, serviceorderdomain.ErrNotFound)
		return
	}

	payments, err := s.clickSvc.History(c.Request.Context(), payable.Ref{Type: payable.TypeServiceOrder, ID: order.ID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order, "payments": payments})
}

func (s *Server) ListUDCOrders(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.serviceOrderSvc.ListUDCQueue(c.Request.Context(), serviceorderdomain.ListUDCQueueRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

func (s *Server) AssignUDCCode(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req assignUDCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.serviceOrderSvc.AssignUDC(c.Request.Context(), id, actor.ID, req.UDCCode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) UpdatePrintedPublicationStatus(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req serviceorderdomain.UpdatePrintingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.serviceOrderSvc.UpdatePrinting(c.Request.Context(), id, serviceorderdomain.UpdatePrintingRequest{
		Status:         strings.TrimSpace(req.Status),
		PrintingStatus: strings.TrimSpace(req.PrintingStatus),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) AssignPrintedPublicationWriter(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req assignWriterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	writerID, err := parseSnowflakeID(req.WriterID)
	if err != nil {
		AbortWithError(c, newValidationError("writer_id", "invalid_writer_id", "invalid writer_id"))
		return
	}

	order, err := s.serviceOrderSvc.AssignWriter(c.Request.Context(), id, writerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
