package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/handler/account"
	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/notification"
	"github.com/jwalitptl/clinic-api/internal/handler/patient"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	accountService "github.com/jwalitptl/clinic-api/internal/service/account"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/ledger"
	"github.com/jwalitptl/clinic-api/internal/service/medical"
	notificationService "github.com/jwalitptl/clinic-api/internal/service/notification"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/pending"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc := time.UTC
	store := memory.NewStore()
	m := metrics.NewTestMetrics()
	log := logger.Nop()

	sealer, err := security.NewSealer([]byte("0123456789abcdef"))
	require.NoError(t, err)
	tokens := auth.NewJWTService("test-secret", "clinic-test", time.Hour)

	pendingSvc := pending.NewService(store.Doctors(), time.Minute, time.Minute)
	ledgerSvc := ledger.NewService(store, sealer, m, log,
		ledger.WithLocation(loc),
		ledger.WithPendingBookings(pendingSvc),
	)
	authSvc := authService.NewService(store.Users(), store.Doctors(), security.NewBcryptHasher(bcrypt.MinCost), tokens, log)
	doctorSvc := doctorService.NewService(store.Doctors(), store.Patients(), store.Appointments(), store.Wallets(), store.Notifications(), m, loc)
	patientSvc := patientService.NewService(store.Patients(), store.Appointments(), store.Wallets(), store.Notifications(), loc)
	medicalSvc := medical.NewService(store.Prescriptions(), store.Consultations(), store.Appointments(), store.Patients(), store.Doctors(), loc)
	notificationSvc := notificationService.NewService(store.Notifications(), store.Appointments())
	accountSvc := accountService.NewService(store.Wallets(), ledgerSvc)

	r, err := NewRouter(middleware.NewAuthMiddleware(authSvc), Handlers{
		Public: []Handler{
			health.NewHandler(nil, nil),
			authHandler.NewHandler(authSvc),
		},
		Shared: []Handler{
			account.NewHandler(accountSvc, patientSvc, doctorSvc),
			notification.NewHandler(notificationSvc),
		},
		Patient: []Handler{
			patient.NewHandler(patientSvc, doctorSvc, medicalSvc),
			appointment.NewHandler(ledgerSvc, pendingSvc, patientSvc),
		},
		Doctor: []Handler{
			doctor.NewHandler(doctorSvc, ledgerSvc, medicalSvc, notificationSvc),
		},
	}, RouterConfig{
		CORSConfig:     middleware.CORSConfig{AllowOrigins: []string{"*"}},
		RequestTimeout: 5 * time.Second,
		Metrics:        m,
	})
	require.NoError(t, err)
	r.Setup()

	return &testAPI{t: t, engine: r.Engine()}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *testAPI) decode(env envelope, v interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(env.Data, v))
}

// signup registers and logs in, returning the access token.
func (a *testAPI) signup(email, role, specialty string) string {
	a.t.Helper()

	code, _ := a.do(http.MethodPost, "/auth/register", "", gin.H{
		"email":      email,
		"password":   "correct-horse",
		"first_name": "Test",
		"last_name":  role,
		"role":       role,
		"specialty":  specialty,
	})
	require.Equal(a.t, http.StatusCreated, code)

	code, env := a.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "correct-horse"})
	require.Equal(a.t, http.StatusOK, code)
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	a.decode(env, &tokens)
	require.NotEmpty(a.t, tokens.AccessToken)
	return tokens.AccessToken
}

var completeDoctorProfile = gin.H{
	"fees":              500,
	"age":               40,
	"experience":        12,
	"qualification":     "MD",
	"license_number":    "MH-1234",
	"hospital":          "City Hospital",
	"city":              "Mumbai",
	"state":             "Maharashtra",
	"landmark":          "Near station",
	"full_address":      "1 Marine Drive",
	"pincode":           "400001",
	"latitude":          18.94,
	"longitude":         72.82,
	"staff_count":       4,
	"languages":         "English, Hindi",
	"reviews":           "Good",
	"awards":            "None",
	"emergency_contact": "9999999999",
}

var completePatientProfile = gin.H{
	"city":      "Mumbai",
	"state":     "Maharashtra",
	"pincode":   "400002",
	"address":   "2 Marine Drive",
	"latitude":  18.95,
	"longitude": 72.83,
}

func futureSlot() gin.H {
	return gin.H{
		"date": time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"),
		"time": "10:00",
	}
}

func TestPublicRoutes(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := api.do(http.MethodPost, "/auth/register", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", env.Status)

	code, env = api.do(http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "whatever-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid credentials", env.Message)
}

func TestAuthAndRoleGates(t *testing.T) {
	api := newTestAPI(t)
	patientToken := api.signup("p@example.com", "patient", "")
	doctorToken := api.signup("d@example.com", "doctor", "Dermatology")

	code, _ := api.do(http.MethodGet, "/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodGet, "/wallet", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := api.do(http.MethodGet, "/doctor/profile", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "permission denied", env.Message)

	code, _ = api.do(http.MethodGet, "/profile", doctorToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = api.do(http.MethodGet, "/doctors", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "complete your profile", env.Message)

	code, _ = api.do(http.MethodGet, "/doctors/not-a-uuid", patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	patientToken := api.signup("p@example.com", "patient", "")
	doctorToken := api.signup("d@example.com", "doctor", "Dermatology")

	code, _ := api.do(http.MethodPut, "/doctor/profile", doctorToken, completeDoctorProfile)
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodPut, "/profile", patientToken, completePatientProfile)
	require.Equal(t, http.StatusOK, code)

	code, env := api.do(http.MethodGet, "/doctors?specialty=Dermatology", patientToken, nil)
	require.Equal(t, http.StatusOK, code)
	var ranked []struct {
		ID              string `json:"id"`
		DistanceDisplay string `json:"distance_display"`
	}
	api.decode(env, &ranked)
	require.Len(t, ranked, 1)
	assert.NotEqual(t, "N/A", ranked[0].DistanceDisplay)
	doctorID := ranked[0].ID

	code, env = api.do(http.MethodGet, "/doctors/"+doctorID, patientToken, nil)
	require.Equal(t, http.StatusOK, code)
	var profile struct {
		ID              string `json:"id"`
		DistanceDisplay string `json:"distance_display"`
	}
	api.decode(env, &profile)
	assert.Equal(t, doctorID, profile.ID)
	assert.Equal(t, ranked[0].DistanceDisplay, profile.DistanceDisplay)

	booking := gin.H{
		"doctor_id":      doctorID,
		"slots":          []gin.H{futureSlot()},
		"payment_method": "wallet",
	}

	// An empty wallet parks the booking.
	code, env = api.do(http.MethodPost, "/bookings", patientToken, booking)
	require.Equal(t, http.StatusPaymentRequired, code)
	var parked struct {
		TotalFee float64 `json:"total_fee"`
	}
	api.decode(env, &parked)
	assert.Equal(t, 500.0, parked.TotalFee)

	code, _ = api.do(http.MethodGet, "/bookings/pending", patientToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodPost, "/wallet/funds", patientToken, gin.H{"amount": 1000, "method": "UPI"})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/bookings", patientToken, booking)
	require.Equal(t, http.StatusCreated, code)
	var booked struct {
		Appointments []struct {
			ID string `json:"id"`
		} `json:"appointments"`
		Total float64 `json:"total"`
	}
	api.decode(env, &booked)
	require.Len(t, booked.Appointments, 1)
	assert.Equal(t, 500.0, booked.Total)
	apptID := booked.Appointments[0].ID

	code, _ = api.do(http.MethodGet, "/bookings/pending", patientToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(http.MethodPost, "/bookings", patientToken, booking)
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodGet, "/doctor/appointments?status=pending", doctorToken, nil)
	require.Equal(t, http.StatusOK, code)
	var inbox []json.RawMessage
	api.decode(env, &inbox)
	assert.Len(t, inbox, 1)

	code, _ = api.do(http.MethodPost, "/doctor/appointments/"+apptID+"/accept", doctorToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodPost, "/doctor/appointments/"+apptID+"/accept", doctorToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodGet, "/doctor/patients", doctorToken, nil)
	require.Equal(t, http.StatusOK, code)
	var roster []struct {
		AppointmentCount int    `json:"appointment_count"`
		DistanceDisplay  string `json:"distance_display"`
	}
	api.decode(env, &roster)
	require.Len(t, roster, 1)
	assert.Equal(t, 1, roster[0].AppointmentCount)
	assert.Equal(t, ranked[0].DistanceDisplay, roster[0].DistanceDisplay)

	var wallet struct {
		Balance float64 `json:"balance"`
	}
	code, env = api.do(http.MethodGet, "/wallet", patientToken, nil)
	require.Equal(t, http.StatusOK, code)
	api.decode(env, &wallet)
	assert.Equal(t, 500.0, wallet.Balance)

	code, env = api.do(http.MethodGet, "/wallet", doctorToken, nil)
	require.Equal(t, http.StatusOK, code)
	api.decode(env, &wallet)
	assert.Equal(t, 500.0, wallet.Balance)

	code, env = api.do(http.MethodGet, "/notifications/unread-count", patientToken, nil)
	require.Equal(t, http.StatusOK, code)
	var unread struct {
		Unread int `json:"unread"`
	}
	api.decode(env, &unread)
	assert.Equal(t, 1, unread.Unread)

	code, env = api.do(http.MethodGet, "/dashboard", doctorToken, nil)
	require.Equal(t, http.StatusOK, code)
	var dash struct {
		WalletBalance float64 `json:"wallet_balance"`
	}
	api.decode(env, &dash)
	assert.Equal(t, 500.0, dash.WalletBalance)

	// Prescriptions and the bill.
	code, _ = api.do(http.MethodPost, "/doctor/appointments/"+apptID+"/prescriptions", doctorToken, gin.H{
		"medicines": []gin.H{{"medicine_name": "Cetirizine", "tablets": 2, "duration": 5, "price": 3.5, "timing": "night"}},
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = api.do(http.MethodGet, "/appointments/"+apptID+"/bill", patientToken, nil)
	require.Equal(t, http.StatusOK, code)
	var bill struct {
		Subtotal float64 `json:"subtotal"`
	}
	api.decode(env, &bill)
	assert.Equal(t, 35.0, bill.Subtotal)

	code, env = api.do(http.MethodPost, "/appointments/"+apptID+"/cancel", patientToken, nil)
	require.Equal(t, http.StatusOK, code)
	var cancelled struct {
		Refunded float64 `json:"refunded"`
	}
	api.decode(env, &cancelled)
	assert.Equal(t, 500.0, cancelled.Refunded)
}

func TestCancelByDateNothingToCancel(t *testing.T) {
	api := newTestAPI(t)
	doctorToken := api.signup("d@example.com", "doctor", "Urology")

	code, _ := api.do(http.MethodPost, "/doctor/appointments/cancel-by-date", doctorToken, gin.H{"date": "2031-01-01"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := api.do(http.MethodPost, "/doctor/appointments/cancel-by-date", doctorToken, gin.H{"date": "01/01/2031"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid request", env.Message)
}
