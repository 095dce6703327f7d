// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/codegen"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/ingest"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
)

type SessionController interface {
	Start(ctx context.Context, cfg domain.StartConfig) (domain.RecordingSession, error)
	Get(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error)
	List(ctx context.Context, filter domain.SessionFilter) ([]domain.RecordingSession, error)
	Stop(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error)
	Pause(ctx context.Context, id uuid.UUID) (session.Transition, error)
	Resume(ctx context.Context, id uuid.UUID) (session.Transition, error)
	SnapshotStored(ctx context.Context, id uuid.UUID) (session.View, error)
}

type ModelEditor interface {
	UpdateEvent(ctx context.Context, id, eventID uuid.UUID, p model.Patch) (domain.RecordedEvent, error)
	DeleteEvent(ctx context.Context, id, eventID uuid.UUID, opts model.DeleteOptions) (model.Removal, error)
	Reorder(ctx context.Context, id uuid.UUID, parent *uuid.UUID, ids []uuid.UUID) (session.ReorderResult, error)
	Move(ctx context.Context, id, eventID uuid.UUID, parent *uuid.UUID) (domain.RecordedEvent, error)

	AddCondition(ctx context.Context, id uuid.UUID, parent *uuid.UUID, cond domain.Condition) (domain.RecordedEvent, error)
	UpdateCondition(ctx context.Context, id, eventID uuid.UUID, cond domain.Condition) (domain.RecordedEvent, error)
	AddLoop(ctx context.Context, id uuid.UUID, parent *uuid.UUID, loop domain.LoopConfig) (domain.RecordedEvent, error)
	UpdateLoop(ctx context.Context, id, eventID uuid.UUID, loop domain.LoopConfig) (domain.RecordedEvent, error)

	AddDataSource(ctx context.Context, id uuid.UUID, parent *uuid.UUID, ds domain.DataSource) (domain.RecordedEvent, error)
	UpdateDataSource(ctx context.Context, id, eventID uuid.UUID, ds domain.DataSource) (domain.RecordedEvent, error)
	DeleteDataSource(ctx context.Context, id, eventID uuid.UUID) (model.Removal, error)

	AddVariableBinding(ctx context.Context, id uuid.UUID, target session.BindingTarget, b domain.VariableBinding) (domain.RecordedEvent, error)
	UpdateVariableBinding(ctx context.Context, id, eventID uuid.UUID, b domain.VariableBinding) (domain.RecordedEvent, error)

	AddAssertion(ctx context.Context, id, eventID uuid.UUID, a domain.AssertionConfig) (domain.RecordedEvent, error)
	UpdateAssertion(ctx context.Context, id, eventID, assertionID uuid.UUID, a domain.AssertionConfig) (domain.RecordedEvent, error)
	DeleteAssertion(ctx context.Context, id, eventID, assertionID uuid.UUID) (domain.RecordedEvent, error)

	CreateStepGroup(ctx context.Context, id uuid.UUID, name string, members []uuid.UUID) (domain.RecordedEvent, error)
	UpdateStepGroup(ctx context.Context, id, groupID uuid.UUID, u session.GroupUpdate) (domain.RecordedEvent, error)
	DeleteStepGroup(ctx context.Context, id, groupID uuid.UUID) (model.Removal, error)
}

// Sessions is everything the router needs from the session manager.
type Sessions interface {
	SessionController
	ModelEditor
}

type Intake interface {
	Submit(ctx context.Context, target ingest.Target, raw normalizer.RawEvent, channel ingest.Channel) ingest.Ack
	Heartbeat(key, routing string) (ingest.HeartbeatAck, error)
	BrowserClosed(ctx context.Context, key string) (domain.RecordingSession, error)
}

type Generator interface {
	Generate(ctx context.Context, snap *model.Snapshot, opts codegen.Options) (codegen.Result, error)
}

type Subscriber interface {
	Subscribe(topics ...string) *realtime.Subscription
}

type HealthChecker interface {
	Check(ctx context.Context) error
}
