package leave_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leave-expiry/internal/domain"
	"leave-expiry/internal/leave"
	leaveerrors "leave-expiry/internal/leave/errors"
	"leave-expiry/internal/middleware"
	"leave-expiry/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

type fakeLeaveService struct {
	createFn       func(ctx context.Context, req leave.CreateLeaveRequest) (domain.LeaveRecord, error)
	getByIDFn      func(ctx context.Context, id string) (domain.LeaveRecord, error)
	listByOwnerFn  func(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error)
	listPendingFn  func(ctx context.Context) ([]domain.LeaveRecord, error)
	updateStatusFn func(ctx context.Context, actorID, id string, req leave.UpdateStatusRequest) (domain.LeaveRecord, error)
}

func (f *fakeLeaveService) Create(ctx context.Context, req leave.CreateLeaveRequest) (domain.LeaveRecord, error) {
	return f.createFn(ctx, req)
}
func (f *fakeLeaveService) GetByID(ctx context.Context, id string) (domain.LeaveRecord, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeLeaveService) ListByOwner(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error) {
	return f.listByOwnerFn(ctx, ownerID)
}
func (f *fakeLeaveService) ListPending(ctx context.Context) ([]domain.LeaveRecord, error) {
	return f.listPendingFn(ctx)
}
func (f *fakeLeaveService) UpdateStatus(ctx context.Context, actorID, id string, req leave.UpdateStatusRequest) (domain.LeaveRecord, error) {
	return f.updateStatusFn(ctx, actorID, id, req)
}

func init() {
	gin.SetMode(gin.TestMode)
	apperror.Init()
}

func TestLeaveHandler_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeLeaveService{
			createFn: func(ctx context.Context, req leave.CreateLeaveRequest) (domain.LeaveRecord, error) {
				assert.Equal(t, "u1", req.UserID)
				assert.Equal(t, "HalfDayLeave", req.LeaveType)
				return domain.LeaveRecord{
					ID:        "l1",
					OwnerID:   req.UserID,
					LeaveType: domain.LeaveType(req.LeaveType),
					FromDate:  mustDate(req.FromDate),
					ToDate:    mustDate(req.FromDate),
					ToTime:    req.ToTime,
					Status:    domain.StatusPending,
				}, nil
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"userId":"u1","leaveType":"HalfDayLeave","fromDate":"2024-06-10","fromTime":"09:00","toTime":"13:00"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leave", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Create(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		var got domain.LeaveRecord
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "l1", got.ID)
		assert.Equal(t, "13:00", got.ToTime)
		assert.Equal(t, domain.StatusPending, got.Status)
	})

	t.Run("missing field", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leave", strings.NewReader(`{"leaveType":"SickLeave","fromDate":"2024-06-10"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Create(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		require.NotNil(t, env.Error)
		assert.Equal(t, apperror.CodeInvalidInput, env.Error.Code)
		assert.Equal(t, "User Id is required", env.Error.Message)
	})
}

func TestLeaveHandler_ListByOwner(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeLeaveService{
			listByOwnerFn: func(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error) {
				assert.Equal(t, "u1", ownerID)
				return []domain.LeaveRecord{{ID: "l1", OwnerID: "u1", Status: domain.StatusPending, FromDate: mustDate("2024-06-10")}}, nil
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave?userId=u1", nil)

		h.ListByOwner(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		var got []domain.LeaveRecord
		require.NoError(t, json.Unmarshal(env.Data, &got))
		require.Len(t, got, 1)
		assert.Equal(t, "l1", got[0].ID)
	})

	t.Run("owner required", func(t *testing.T) {
		svc := &fakeLeaveService{
			listByOwnerFn: func(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error) {
				return nil, leaveerrors.ErrOwnerRequired
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave", nil)

		h.ListByOwner(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, apperror.CodeInvalidInput, env.Error.Code)
	})
}

func TestLeaveHandler_UpdateStatus(t *testing.T) {
	t.Run("passes actor and id", func(t *testing.T) {
		svc := &fakeLeaveService{
			updateStatusFn: func(ctx context.Context, actorID, id string, req leave.UpdateStatusRequest) (domain.LeaveRecord, error) {
				assert.Equal(t, "auto-expiry", actorID)
				assert.Equal(t, "l1", id)
				assert.Equal(t, "Rejected", req.Status)
				assert.Equal(t, "expired", req.RejectionReason)
				return domain.LeaveRecord{ID: id, Status: domain.StatusRejected, RejectionReason: req.RejectionReason, FromDate: mustDate("2024-06-10")}, nil
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave/l1", strings.NewReader(`{"status":"Rejected","rejectionReason":"expired"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Request.Header.Set(middleware.ActorIDHeader, "auto-expiry")
		c.Params = gin.Params{{Key: "id", Value: "l1"}}

		h.UpdateStatus(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		var got domain.LeaveRecord
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, domain.StatusRejected, got.Status)
		assert.Equal(t, "expired", got.RejectionReason)
	})

	t.Run("unknown status", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave/l1", strings.NewReader(`{"status":"Cancelled"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: "l1"}}

		h.UpdateStatus(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "Status must be one of Pending, Approved, Rejected", env.Error.Message)
	})

	t.Run("invalid transition maps to 400", func(t *testing.T) {
		svc := &fakeLeaveService{
			updateStatusFn: func(ctx context.Context, actorID, id string, req leave.UpdateStatusRequest) (domain.LeaveRecord, error) {
				return domain.LeaveRecord{}, leaveerrors.ErrInvalidStatusTransition
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave/l1", strings.NewReader(`{"status":"Rejected","rejectionReason":"x"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: "l1"}}

		h.UpdateStatus(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, apperror.CodeInvalidState, env.Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeLeaveService{
			updateStatusFn: func(ctx context.Context, actorID, id string, req leave.UpdateStatusRequest) (domain.LeaveRecord, error) {
				return domain.LeaveRecord{}, leaveerrors.ErrLeaveNotFound
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave/nope", strings.NewReader(`{"status":"Approved"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: "nope"}}

		h.UpdateStatus(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLeaveRoutes_PendingAndByID(t *testing.T) {
	svc := &fakeLeaveService{
		listPendingFn: func(ctx context.Context) ([]domain.LeaveRecord, error) {
			return []domain.LeaveRecord{{ID: "l1", Status: domain.StatusPending, FromDate: mustDate("2024-06-10")}}, nil
		},
		getByIDFn: func(ctx context.Context, id string) (domain.LeaveRecord, error) {
			return domain.LeaveRecord{ID: id, Status: domain.StatusApproved, FromDate: mustDate("2024-06-10")}, nil
		},
	}

	r := gin.New()
	leave.RegisterRoutes(r, leave.NewHandler(svc))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leave/pending", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var pending []domain.LeaveRecord
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w.Body.Bytes()).Data, &pending))
	require.Len(t, pending, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leave/l9", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var one domain.LeaveRecord
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w.Body.Bytes()).Data, &one))
	assert.Equal(t, "l9", one.ID)
}
