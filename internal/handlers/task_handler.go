package handlers

import (
	"encoding/json"
	"net/http"
	"task_tracker/internal/middleware"
	"task_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks    services.TaskService
	comments services.CommentService
}

func NewTaskHandler(tasks services.TaskService, comments services.CommentService) *TaskHandler {
	return &TaskHandler{tasks: tasks, comments: comments}
}

type recurrenceRequest struct {
	Frequency string          `json:"frequency"`
	Interval  json.RawMessage `json:"interval"`
	EndDate   string          `json:"endDate"`
}

type taskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	DueDate     string             `json:"dueDate"`
	User        []uint             `json:"user"`
	IsRecurring bool               `json:"isRecurring"`
	Recurrence  *recurrenceRequest `json:"recurrence"`
}

func (r taskRequest) input() (services.CreateTaskInput, error) {
	due, err := parseDate(r.DueDate)
	if err != nil {
		return services.CreateTaskInput{}, err
	}

	in := services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Type,
		Status:      r.Status,
		DueDate:     due,
		AssigneeIDs: r.User,
	}
	if r.IsRecurring {
		if r.Recurrence == nil {
			return in, services.NewValidationError("Recurrence frequency is required")
		}
		end, err := parseDate(r.Recurrence.EndDate)
		if err != nil {
			return in, err
		}
		in.Recurrence = services.RecurrenceInput{
			IsRecurring: true,
			Frequency:   r.Recurrence.Frequency,
			Interval:    parseInterval(r.Recurrence.Interval),
			EndDate:     end,
		}
	}
	return in, nil
}

func (h *TaskHandler) bindTask(c *gin.Context) (services.CreateTaskInput, bool) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return services.CreateTaskInput{}, false
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return in, false
	}
	return in, true
}

func (h *TaskHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "projectId")
	if !ok {
		return
	}
	in, ok := h.bindTask(c)
	if !ok {
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), projectID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) ListAll(c *gin.Context) {
	tasks, err := h.tasks.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) ListByProject(c *gin.Context) {
	projectID, ok := paramID(c, "projectId")
	if !ok {
		return
	}
	tasks, err := h.tasks.ListByProject(c.Request.Context(), middleware.PrincipalFrom(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) MyTasks(c *gin.Context) {
	tasks, err := h.tasks.ListByAssignee(c.Request.Context(), middleware.PrincipalFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bindTask(c)
	if !ok {
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) TransitionStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Status is required")
		return
	}

	task, err := h.tasks.TransitionStatus(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (h *TaskHandler) AddComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	comments, err := h.comments.Add(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comments)
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := h.comments.List(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
