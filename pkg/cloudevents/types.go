package cloudevents

import (
	"time"
)

// Source constants for event sources
const (
	SourceStock    = "/leathercraft/inventory-service"
	SourceWorkflow = "/leathercraft/stock-worker"
)

// Extension attribute names carried alongside the core attributes
const (
	ExtCorrelationID = "lccorrelationid"
	ExtWorkflowID    = "lcworkflowid"
	ExtOrderID       = "lcorderid"
	ExtItemKind      = "lcitemkind"
)

// StockCloudEvent is a CloudEvents v1.0 envelope for stock events
type StockCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	CorrelationID string `json:"lccorrelationid,omitempty"`
	WorkflowID    string `json:"lcworkflowid,omitempty"`
	OrderID       string `json:"lcorderid,omitempty"`
	ItemKind      string `json:"lcitemkind,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// Extensions returns the populated extension attributes keyed by their
// CloudEvents names
func (e *StockCloudEvent) Extensions() map[string]string {
	ext := make(map[string]string)
	for name, value := range map[string]string{
		ExtCorrelationID: e.CorrelationID,
		ExtWorkflowID:    e.WorkflowID,
		ExtOrderID:       e.OrderID,
		ExtItemKind:      e.ItemKind,
		"traceparent":    e.TraceParent,
		"tracestate":     e.TraceState,
	} {
		if value != "" {
			ext[name] = value
		}
	}
	return ext
}

// WithCorrelation sets the correlation and workflow ids and returns the event
func (e *StockCloudEvent) WithCorrelation(correlationID, workflowID string) *StockCloudEvent {
	e.CorrelationID = correlationID
	e.WorkflowID = workflowID
	return e
}

// Validate checks the attributes CloudEvents 1.0 requires
func (e *StockCloudEvent) Validate() error {
	switch {
	case e.SpecVersion != "1.0":
		return &InvalidEventError{Attribute: "specversion"}
	case e.ID == "":
		return &InvalidEventError{Attribute: "id"}
	case e.Source == "":
		return &InvalidEventError{Attribute: "source"}
	case e.Type == "":
		return &InvalidEventError{Attribute: "type"}
	}
	return nil
}

// InvalidEventError reports a missing required attribute
type InvalidEventError struct {
	Attribute string
}

func (e *InvalidEventError) Error() string {
	return "cloudevent missing required attribute " + e.Attribute
}
