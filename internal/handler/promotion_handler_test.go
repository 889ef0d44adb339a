package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartedu-app/smartedu-api/internal/config"
	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/gate"
	"github.com/smartedu-app/smartedu-api/internal/handler"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
	"github.com/smartedu-app/smartedu-api/internal/router"
	"github.com/smartedu-app/smartedu-api/internal/service"
)

type promotionApp struct {
	app *fiber.App
	db  *gorm.DB
}

type promotionAppFixture struct {
	director models.User
	parent   models.User
	year     models.AcademicYear
	levelOne models.Level
	levelTwo models.Level
	students []models.Student
	orphan   models.Student
}

func setupPromotionApp(t *testing.T) (promotionApp, promotionAppFixture) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Stage{},
		&models.Level{},
		&models.Subject{},
		&models.AcademicYear{},
		&models.Student{},
		&models.StudentPromotion{},
		&models.Lesson{},
		&models.Notification{},
		&models.ActivityLog{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	academicRepo := repository.NewAcademicRepository(db)
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	notifications := service.NewNotificationService(notificationRepo, nil, "smartedu-test", nil, validate, logger)
	activity := service.NewActivityService(activityRepo, logger)
	academic := service.NewAcademicService(academicRepo, validate, logger)
	lessons := service.NewLessonService(lessonRepo, academicRepo, nil, validate, logger)

	query := service.NewPromotionQueryService(promotionRepo, academicRepo, nil, 0, logger)
	respond := service.NewPromotionResponseService(promotionRepo, notifications, activity, nil, service.PromotionResponsePolicy{}, validate, logger)
	rollover := service.NewPromotionRolloverService(promotionRepo, studentRepo, userRepo, academicRepo, notifications, activity, nil, logger)

	promotionGate := gate.New(query, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		PromotionHandler: handler.NewPromotionHandler(query, respond, promotionGate, logger),
		AcademicHandler:  handler.NewAcademicHandler(academic, rollover, logger),
		LessonHandler:    handler.NewLessonHandler(lessons, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			id, _ := strconv.ParseUint(c.Get("X-Test-User"), 10, 64)
			c.Locals("user_id", uint(id))
			c.Locals("user_role", c.Get("X-Test-Role"))
			return c.Next()
		},
		PromotionGate: promotionGate,
	})

	fixture := seedPromotionAppFixture(t, db)

	return promotionApp{app: app, db: db}, fixture
}

func seedPromotionAppFixture(t *testing.T, db *gorm.DB) promotionAppFixture {
	t.Helper()

	stage := models.Stage{Name: "Primary", SortOrder: 1}
	require.NoError(t, db.Create(&stage).Error)

	levelOne := models.Level{Name: "Grade 1", StageID: stage.ID, SortOrder: 1}
	levelTwo := models.Level{Name: "Grade 2", StageID: stage.ID, SortOrder: 2}
	require.NoError(t, db.Create(&levelOne).Error)
	require.NoError(t, db.Create(&levelTwo).Error)

	director := models.User{Name: "Dana Director", Email: "dana@example.com", Role: models.RoleDirector}
	parent := models.User{Name: "Pat Guardian", Email: "pat@example.com", Role: models.RoleParent}
	require.NoError(t, db.Create(&director).Error)
	require.NoError(t, db.Create(&parent).Error)

	year := models.AcademicYear{
		Name:     "2026/2027",
		StartsAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&year).Error)

	students := make([]models.Student, 0, 2)
	for i, name := range []string{"Sam Learner", "Riley Learner"} {
		user := models.User{Name: name, Email: fmt.Sprintf("student%d@example.com", i), Role: models.RoleStudent}
		require.NoError(t, db.Create(&user).Error)

		student := models.Student{
			UserID:   user.ID,
			Name:     name,
			LevelID:  &levelOne.ID,
			ParentID: &parent.ID,
			Status:   models.StudentStatusActive,
		}
		require.NoError(t, db.Create(&student).Error)
		students = append(students, student)
	}

	orphanUser := models.User{Name: "Alex Solo", Email: "alex@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(&orphanUser).Error)
	orphan := models.Student{
		UserID:  orphanUser.ID,
		Name:    "Alex Solo",
		LevelID: &levelOne.ID,
		Status:  models.StudentStatusActive,
	}
	require.NoError(t, db.Create(&orphan).Error)

	return promotionAppFixture{
		director: director,
		parent:   parent,
		year:     year,
		levelOne: levelOne,
		levelTwo: levelTwo,
		students: students,
		orphan:   orphan,
	}
}

func doJSON(t *testing.T, app *fiber.App, method, target string, user models.User, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(user.ID), 10))
	req.Header.Set("X-Test-Role", user.Role)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func TestPromotionWorkflowEndToEnd(t *testing.T) {
	env, fixture := setupPromotionApp(t)

	// The director opens the year: two students get pending records, the
	// parentless one is skipped.
	rolloverPath := fmt.Sprintf("/academic-years/%d/promotions/rollover", fixture.year.ID)
	resp := doJSON(t, env.app, "POST", rolloverPath, fixture.director, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rolloverBody struct {
		Success bool               `json:"success"`
		Data    dto.RolloverResult `json:"data"`
	}
	decodeBody(t, resp, &rolloverBody)
	require.True(t, rolloverBody.Success)
	require.Equal(t, 2, rolloverBody.Data.Created)
	require.Equal(t, 1, rolloverBody.Data.SkippedNoParent)

	// The parent is locked out of everything but the decision screen.
	resp = doJSON(t, env.app, "GET", "/api/v1/lessons", fixture.parent, nil)
	require.Equal(t, fiber.StatusLocked, resp.StatusCode)

	resp = doJSON(t, env.app, "GET", "/academic-years/promotions/pending", fixture.parent, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var pendingBody struct {
		Success bool                           `json:"success"`
		Data    []dto.PendingPromotionResponse `json:"data"`
	}
	decodeBody(t, resp, &pendingBody)
	require.Len(t, pendingBody.Data, 2)

	byStudent := make(map[uint]dto.PendingPromotionResponse, len(pendingBody.Data))
	for _, item := range pendingBody.Data {
		byStudent[item.StudentID] = item
	}

	// Approving the first promotion still leaves one pending, so the gate
	// stays closed.
	resp = doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.parent, dto.PromotionRespondRequest{
		PromotionID: byStudent[fixture.students[0].ID].ID,
		Response:    "yes",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var respondBody dto.PromotionRespondResult
	decodeBody(t, resp, &respondBody)
	require.True(t, respondBody.Success)
	require.True(t, respondBody.IsApproved)
	require.True(t, respondBody.Promoted)
	require.Contains(t, respondBody.Message, "Sam Learner")
	require.Contains(t, respondBody.Message, "Grade 2")

	resp = doJSON(t, env.app, "GET", "/api/v1/lessons", fixture.parent, nil)
	require.Equal(t, fiber.StatusLocked, resp.StatusCode)

	resp = doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.parent, dto.PromotionRespondRequest{
		PromotionID: byStudent[fixture.students[1].ID].ID,
		Response:    "no",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &respondBody)
	require.True(t, respondBody.Success)
	require.False(t, respondBody.IsApproved)
	require.False(t, respondBody.Promoted)
	require.Contains(t, respondBody.Message, "Riley Learner")

	// Batch exhausted, the gate releases the parent.
	resp = doJSON(t, env.app, "GET", "/api/v1/lessons", fixture.parent, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The approved student moved to the next level, the rejected one stayed.
	var moved models.Student
	require.NoError(t, env.db.First(&moved, fixture.students[0].ID).Error)
	require.NotNil(t, moved.LevelID)
	require.Equal(t, fixture.levelTwo.ID, *moved.LevelID)

	var kept models.Student
	require.NoError(t, env.db.First(&kept, fixture.students[1].ID).Error)
	require.NotNil(t, kept.LevelID)
	require.Equal(t, fixture.levelOne.ID, *kept.LevelID)

	// The director dashboard reflects both answers and the skipped student.
	statsPath := fmt.Sprintf("/academic-years/promotions/stats?academicYearId=%d", fixture.year.ID)
	resp = doJSON(t, env.app, "GET", statsPath, fixture.director, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var statsBody dto.PromotionYearStats
	decodeBody(t, resp, &statsBody)
	require.Equal(t, int64(2), statsBody.Stats.Total)
	require.Equal(t, int64(0), statsBody.Stats.Pending)
	require.Equal(t, int64(1), statsBody.Stats.Completed)
	require.Equal(t, int64(1), statsBody.Stats.Rejected)
	require.Equal(t, 100, statsBody.Stats.ResponseRate)
	require.Len(t, statsBody.Promotions, 2)
	require.Len(t, statsBody.SkippedStudents, 1)
	require.Equal(t, fixture.orphan.ID, statsBody.SkippedStudents[0].StudentID)

	// Re-running the rollover creates nothing new.
	resp = doJSON(t, env.app, "POST", rolloverPath, fixture.director, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &rolloverBody)
	require.Equal(t, 0, rolloverBody.Data.Created)
	require.Equal(t, 2, rolloverBody.Data.AlreadyExisted)
}

func TestPromotionHandlerErrorMapping(t *testing.T) {
	env, fixture := setupPromotionApp(t)

	rolloverPath := fmt.Sprintf("/academic-years/%d/promotions/rollover", fixture.year.ID)
	resp := doJSON(t, env.app, "POST", rolloverPath, fixture.director, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var promotion models.StudentPromotion
	require.NoError(t, env.db.Where("student_id = ?", fixture.students[0].ID).First(&promotion).Error)

	errorBody := func(resp *http.Response) string {
		var body struct {
			Error string `json:"error"`
		}
		decodeBody(t, resp, &body)
		return body.Error
	}

	t.Run("NonParentForbidden", func(t *testing.T) {
		resp := doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.director, dto.PromotionRespondRequest{
			PromotionID: promotion.ID,
			Response:    "yes",
		})
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		require.NotEmpty(t, errorBody(resp))
	})

	t.Run("ForeignParentForbidden", func(t *testing.T) {
		stranger := models.User{Name: "Other Parent", Email: "other@example.com", Role: models.RoleParent}
		require.NoError(t, env.db.Create(&stranger).Error)

		resp := doJSON(t, env.app, "POST", "/academic-years/promotions/respond", stranger, dto.PromotionRespondRequest{
			PromotionID: promotion.ID,
			Response:    "yes",
		})
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("UnknownPromotionNotFound", func(t *testing.T) {
		resp := doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.parent, dto.PromotionRespondRequest{
			PromotionID: 9999,
			Response:    "yes",
		})
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("InvalidAnswerBadRequest", func(t *testing.T) {
		resp := doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.parent, dto.PromotionRespondRequest{
			PromotionID: promotion.ID,
			Response:    "maybe",
		})
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("DoubleAnswerConflict", func(t *testing.T) {
		resp := doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.parent, dto.PromotionRespondRequest{
			PromotionID: promotion.ID,
			Response:    "yes",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = doJSON(t, env.app, "POST", "/academic-years/promotions/respond", fixture.parent, dto.PromotionRespondRequest{
			PromotionID: promotion.ID,
			Response:    "no",
		})
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
		require.Equal(t, "promotion already answered", errorBody(resp))
	})

	t.Run("StatsRequiresDirector", func(t *testing.T) {
		statsPath := fmt.Sprintf("/academic-years/promotions/stats?academicYearId=%d", fixture.year.ID)
		resp := doJSON(t, env.app, "GET", statsPath, fixture.parent, nil)
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("StatsUnknownYear", func(t *testing.T) {
		resp := doJSON(t, env.app, "GET", "/academic-years/promotions/stats?academicYearId=4242", fixture.director, nil)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
