package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type EventName string

// Server to client events.
const (
	EventConnectionStatus    EventName = "connection-status"
	EventNotification        EventName = "notification"
	EventTestExecutionUpdate EventName = "test-execution-update"
	EventCollaborationUpdate EventName = "collaboration-update"
	EventTestCaseUpdate      EventName = "test-case-update"
	EventUserJoinedProject   EventName = "user-joined-project"
	EventUserLeftProject     EventName = "user-left-project"
	EventTestRunStarted      EventName = "test-run-started"
	EventUserTyping          EventName = "user-typing"
	EventUserStoppedTyping   EventName = "user-stopped-typing"
	EventError               EventName = "error"
	EventPong                EventName = "pong"

	// EventReconnected never crosses the wire, the client controller emits it locally.
	EventReconnected EventName = "reconnected"
)

// Client to server commands.
const (
	CommandJoinProject     EventName = "join-project"
	CommandLeaveProject    EventName = "leave-project"
	CommandTestCaseEditing EventName = "test-case-editing"
	CommandTypingStart     EventName = "typing-start"
	CommandTypingStop      EventName = "typing-stop"
	CommandTestRunStarted  EventName = "test-run-started"
	CommandPing            EventName = "ping"
)

// Payload is the closed set of event bodies. Each type maps to exactly one event name.
type Payload interface {
	EventName() EventName
}

type UserRef struct {
	ID    UserID `json:"id"`
	Email string `json:"email,omitempty"`
}

type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Reason    string `json:"reason,omitempty"`
}

func (ConnectionStatus) EventName() EventName { return EventConnectionStatus }

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

var (
	ErrNotificationType  = errors.New("unknown notification type")
	ErrNotificationEmpty = errors.New("notification needs a title or a message")
)

type Notification struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	UserID    UserID           `json:"userId,omitempty"`
	ProjectID RoomID           `json:"projectId,omitempty"`
}

func (Notification) EventName() EventName { return EventNotification }

func (n Notification) Validate() error {
	switch n.Type {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
	default:
		return ErrNotificationType
	}
	if strings.TrimSpace(n.Title) == "" && strings.TrimSpace(n.Message) == "" {
		return ErrNotificationEmpty
	}
	return nil
}

type ExecutionUser struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

type TestExecutionUpdate struct {
	TestCaseID string        `json:"testCaseId"`
	TestRunID  string        `json:"testRunId"`
	Status     string        `json:"status"`
	Progress   *float64      `json:"progress,omitempty"`
	Duration   *int64        `json:"duration,omitempty"`
	Error      string        `json:"error,omitempty"`
	User       ExecutionUser `json:"user"`
	Timestamp  time.Time     `json:"timestamp"`
}

func (TestExecutionUpdate) EventName() EventName { return EventTestExecutionUpdate }

type CollaborationUpdate struct {
	Type      string          `json:"type"`
	EntityID  string          `json:"entityId"`
	UserID    UserID          `json:"userId"`
	UserName  string          `json:"userName"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (CollaborationUpdate) EventName() EventName { return EventCollaborationUpdate }

type TestCaseUpdate struct {
	TestCaseID string          `json:"testCaseId"`
	Field      string          `json:"field"`
	Value      json.RawMessage `json:"value"`
	UserID     UserID          `json:"userId"`
	UserEmail  string          `json:"userEmail"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (TestCaseUpdate) EventName() EventName { return EventTestCaseUpdate }

// ProjectPresence is shared by the joined and left events.
type ProjectPresence struct {
	UserID    UserID `json:"userId"`
	UserEmail string `json:"userEmail"`
	ProjectID RoomID `json:"projectId"`
}

type UserJoinedProject ProjectPresence

func (UserJoinedProject) EventName() EventName { return EventUserJoinedProject }

type UserLeftProject ProjectPresence

func (UserLeftProject) EventName() EventName { return EventUserLeftProject }

type TestRunStarted struct {
	TestRunID string    `json:"testRunId"`
	ProjectID RoomID    `json:"projectId"`
	StartedBy UserRef   `json:"startedBy"`
	Timestamp time.Time `json:"timestamp"`
}

func (TestRunStarted) EventName() EventName { return EventTestRunStarted }

type TypingSignal struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	UserID     UserID `json:"userId"`
	UserEmail  string `json:"userEmail,omitempty"`
}

type UserTyping TypingSignal

func (UserTyping) EventName() EventName { return EventUserTyping }

type UserStoppedTyping TypingSignal

func (UserStoppedTyping) EventName() EventName { return EventUserStoppedTyping }

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorPayload) EventName() EventName { return EventError }

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}

func (Pong) EventName() EventName { return EventPong }

type Reconnected struct {
	Attempt int `json:"attempt"`
}

func (Reconnected) EventName() EventName { return EventReconnected }

// RawEvent carries an event whose body the caller already shaped,
// as used by BroadcastToProject.
type RawEvent struct {
	Name EventName
	Data any
}

func (e RawEvent) EventName() EventName { return e.Name }

func (e RawEvent) MarshalJSON() ([]byte, error) { return json.Marshal(e.Data) }

// Inbound command bodies.

type TypingCommand struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	ProjectID  RoomID `json:"projectId,omitempty"`
}

type EditingCommand struct {
	TestCaseID string          `json:"testCaseId"`
	Field      string          `json:"field"`
	Value      json.RawMessage `json:"value"`
	ProjectID  RoomID          `json:"projectId,omitempty"`
}

type RunStartedCommand struct {
	TestRunID string `json:"testRunId"`
	ProjectID RoomID `json:"projectId"`
}
