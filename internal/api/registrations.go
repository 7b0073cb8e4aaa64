package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"travel_tax/internal/domain"
	"travel_tax/internal/metrics"
	"travel_tax/internal/middleware"
	"travel_tax/internal/receipts"
	"travel_tax/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegistrationRequest is the body of POST /registrations
type RegistrationRequest struct {
	FullName            string      `json:"full_name"`
	CitizenID           string      `json:"citizen_id"`
	TaxYear             int         `json:"tax_year" binding:"required"`
	PrimaryProvinceID   uint        `json:"primary_province_id" binding:"required"`
	SecondaryProvinceID *uint       `json:"secondary_province_id"`
	TravelStartDate     domain.Date `json:"travel_start_date"`
	TravelEndDate       domain.Date `json:"travel_end_date"`
	TaxReductionAmount  *int64      `json:"tax_reduction_amount" binding:"required"`
	ReceiptURLs         []string    `json:"receipt_urls"`
}

// RegistrationPatchRequest is the body of PUT and PATCH /registrations/:id
type RegistrationPatchRequest struct {
	FullName            *string      `json:"full_name"`
	CitizenID           *string      `json:"citizen_id"`
	TaxYear             *int         `json:"tax_year"`
	PrimaryProvinceID   *uint        `json:"primary_province_id"`
	SecondaryProvinceID nullableID   `json:"secondary_province_id"` // null clears it
	TravelStartDate     *domain.Date `json:"travel_start_date"`
	TravelEndDate       *domain.Date `json:"travel_end_date"`
	TaxReductionAmount  *int64       `json:"tax_reduction_amount"`
	ReceiptURLs         *[]string    `json:"receipt_urls"`
}

// nullableID tells an absent field apart from an explicit null
type nullableID struct {
	Set   bool
	Value *uint
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// ReceiptUploadRequest names the receipt file about to be uploaded
type ReceiptUploadRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// ownerScope restricts non-admins to their own registrations
func ownerScope(user *domain.User) *uint {
	if user.IsAdmin() {
		return nil
	}
	id := user.ID
	return &id
}

// CreateRegistrationHandler stores a registration for the caller
func CreateRegistrationHandler(st *store.Store, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		var req RegistrationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		reg, err := st.CreateRegistration(c.Request.Context(), user.ID, store.RegistrationInput{
			FullName:            req.FullName,
			CitizenID:           req.CitizenID,
			TaxYear:             req.TaxYear,
			PrimaryProvinceID:   req.PrimaryProvinceID,
			SecondaryProvinceID: req.SecondaryProvinceID,
			TravelStartDate:     req.TravelStartDate,
			TravelEndDate:       req.TravelEndDate,
			TaxReductionAmount:  *req.TaxReductionAmount,
			ReceiptURLs:         req.ReceiptURLs,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		m.RegistrationsCreated.Inc()
		logrus.WithFields(logrus.Fields{
			"registration_id": reg.ID,
			"user_id":         user.ID,
			"tax_year":        reg.TaxYear,
			"amount":          reg.TaxReductionAmount,
		}).Info("Registration created")
		c.JSON(http.StatusCreated, reg)
	}
}

// ListRegistrationsHandler pages through registrations, optionally by tax_year
func ListRegistrationsHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		filter := store.RegistrationFilter{OwnerID: ownerScope(user)}
		if ty := c.Query("tax_year"); ty != "" {
			v, err := strconv.Atoi(ty)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tax_year"})
				return
			}
			filter.TaxYear = &v
		}
		var err error
		if filter.Skip, err = strconv.Atoi(c.DefaultQuery("skip", "0")); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid skip"})
			return
		}
		if l, ok := c.GetQuery("limit"); ok {
			v, err := strconv.Atoi(l)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
				return
			}
			filter.Limit = &v
		}
		regs, err := st.ListRegistrations(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, regs)
	}
}

// GetRegistrationHandler returns one registration visible to the caller
func GetRegistrationHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		reg, err := st.GetRegistration(c.Request.Context(), id, ownerScope(user))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reg)
	}
}

// UpdateRegistrationHandler serves both PUT and PATCH; only supplied fields change
func UpdateRegistrationHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req RegistrationPatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		reg, err := st.UpdateRegistration(c.Request.Context(), id, ownerScope(user), store.RegistrationPatch{
			FullName:            req.FullName,
			CitizenID:           req.CitizenID,
			TaxYear:             req.TaxYear,
			PrimaryProvinceID:   req.PrimaryProvinceID,
			SecondaryProvinceID: req.SecondaryProvinceID.Value,
			ClearSecondary:      req.SecondaryProvinceID.Set && req.SecondaryProvinceID.Value == nil,
			TravelStartDate:     req.TravelStartDate,
			TravelEndDate:       req.TravelEndDate,
			TaxReductionAmount:  req.TaxReductionAmount,
			ReceiptURLs:         req.ReceiptURLs,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{"registration_id": reg.ID, "user_id": user.ID}).Info("Registration updated")
		c.JSON(http.StatusOK, reg)
	}
}

// DeleteRegistrationHandler removes a registration visible to the caller
func DeleteRegistrationHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := st.DeleteRegistration(c.Request.Context(), id, ownerScope(user)); err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{"registration_id": id, "user_id": user.ID}).Info("Registration deleted")
		c.Status(http.StatusNoContent)
	}
}

// ReceiptUploadHandler hands out a presigned URL for uploading a receipt.
// The returned URL is what clients later put in receipt_urls.
func ReceiptUploadHandler(presigner receipts.Presigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		if presigner == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Receipt storage is not configured"})
			return
		}
		user, _ := middleware.CurrentUser(c)
		var req ReceiptUploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		upload, err := presigner.PresignUpload(c.Request.Context(), user.ID, req.Filename)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, upload)
	}
}
