package relayserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
	"bidvault/internal/relay"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, relay.ErrorResponse{Error: err.Error()})
}

var errBadID = errors.New("ids must not contain NUL")

// validIDs reports whether every id can be used as a storage key component.
func validIDs[T ~string](ids ...T) bool {
	for _, id := range ids {
		if strings.Contains(string(id), sep) {
			return false
		}
	}
	return true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) RegisterIdentity(c *gin.Context) {
	var reg domain.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if reg.ID == "" || !reg.Role.Valid() {
		fail(c, http.StatusBadRequest, errors.New("id and a valid role are required"))
		return
	}
	if !validIDs(reg.ID) || !validIDs(reg.Email) {
		fail(c, http.StatusBadRequest, errBadID)
		return
	}
	if reg.Role.IsViewer() {
		if _, err := crypto.ParsePublicKey(reg.PublicKey); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
	}

	res, err := h.Store.RegisterIdentity(reg)
	switch {
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusConflict, relay.RegistrationResponse{RegistrationResult: res, Error: err.Error()})
	case errors.Is(err, ErrKeyMismatch):
		fail(c, http.StatusForbidden, err)
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
	default:
		h.Log.WithField("identity", reg.ID).Info("identity registered")
		c.JSON(http.StatusOK, relay.RegistrationResponse{RegistrationResult: res})
	}
}

func (h *Handler) GetIdentity(c *gin.Context) {
	id, err := h.Store.GetIdentity(domain.IdentityID(c.Param("id")))
	switch {
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, err)
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, id)
	}
}

func (h *Handler) SubmitObservations(c *gin.Context) {
	var req relay.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, h.storeBatch(req.Observations))
}

// Beacon stores a batch without reporting per-row results.
func (h *Handler) Beacon(c *gin.Context) {
	var req relay.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	res := h.storeBatch(req.Observations)
	h.Log.WithField("stored", res.Stored).Debug("beacon received")
	c.Status(http.StatusAccepted)
}

// storeBatch stores every valid row and reports the rest individually.
func (h *Handler) storeBatch(rows []domain.ObservationRecord) domain.SubmitResult {
	res := domain.SubmitResult{StoredIDs: []domain.ObservationID{}}
	for _, rec := range rows {
		if err := h.validateRow(rec); err != nil {
			res.Errors = append(res.Errors, domain.SubmitError{ObservationID: rec.Metadata.ObservationID, Error: err.Error()})
			continue
		}
		if err := h.Store.PutObservation(rec); err != nil {
			res.Errors = append(res.Errors, domain.SubmitError{ObservationID: rec.Metadata.ObservationID, Error: err.Error()})
			continue
		}
		res.Stored++
		res.StoredIDs = append(res.StoredIDs, rec.Metadata.ObservationID)
	}
	return res
}

func (h *Handler) validateRow(rec domain.ObservationRecord) error {
	if err := h.validate.Struct(rec.Metadata); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}
	if !validIDs(rec.Metadata.UserID) || !validIDs(rec.Metadata.ObservationID) {
		return errBadID
	}
	if len(rec.Ciphertext) == 0 {
		return errors.New("missing ciphertext")
	}
	if len(rec.IV) != crypto.IVBytes {
		return fmt.Errorf("iv must be %d bytes", crypto.IVBytes)
	}
	switch rec.Scheme {
	case "", domain.SchemeStudentKey:
	case domain.SchemeRecipients:
		if len(rec.WrappedKeys) == 0 {
			return errors.New("recipients envelope without wrapped keys")
		}
	default:
		return fmt.Errorf("unknown scheme %q", rec.Scheme)
	}
	return nil
}

func (h *Handler) ListObservations(c *gin.Context) {
	userID := domain.IdentityID(c.Query("user_id"))
	if userID == "" {
		fail(c, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	if !validIDs(userID) {
		fail(c, http.StatusBadRequest, errBadID)
		return
	}
	limit := defaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	rows, err := h.Store.ListObservations(userID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []domain.ObservationRecord{}
	}
	c.JSON(http.StatusOK, relay.ObservationsResponse{Observations: rows})
}

func (h *Handler) CreateGrant(c *gin.Context) {
	var g domain.Grant
	if err := c.ShouldBindJSON(&g); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if g.GrantorID == "" || g.GranteeID == "" || len(g.WrappedKey) == 0 {
		fail(c, http.StatusBadRequest, errors.New("grantor_id, grantee_id and wrapped_key are required"))
		return
	}
	if !validIDs(g.GrantorID, g.GranteeID) {
		fail(c, http.StatusBadRequest, errBadID)
		return
	}
	switch err := h.Store.CreateGrant(g); {
	case errors.Is(err, ErrGrantExists):
		fail(c, http.StatusConflict, err)
	case errors.Is(err, ErrUnknownUser):
		fail(c, http.StatusNotFound, err)
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
	default:
		h.Log.WithFields(logrus.Fields{"grantor": g.GrantorID, "grantee": g.GranteeID}).Info("grant stored")
		c.Status(http.StatusCreated)
	}
}

func (h *Handler) ListGrants(c *gin.Context) {
	grantee := domain.IdentityID(c.Query("grantee_id"))
	if grantee == "" {
		fail(c, http.StatusBadRequest, errors.New("grantee_id is required"))
		return
	}
	if !validIDs(grantee) {
		fail(c, http.StatusBadRequest, errBadID)
		return
	}
	grants, err := h.Store.ListGrants(grantee)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, relay.GrantsResponse{Grants: grants})
}
