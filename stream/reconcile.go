// Package stream provides DynamoDB Streams handlers that reconcile derived
// tables with their primary table.
//
// The write path reads before it writes, so two concurrent writers to one row
// can leave a by-field projection behind for a value the row no longer
// holds. Every change to a primary table is visible on its stream with both
// images; the handler asks the store to repair each value that left the row.
// Repairs are idempotent, so redelivered records are harmless.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/dynamo"
	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// ErrMalformedRecord is returned for stream records whose images cannot be
// decoded.
var ErrMalformedRecord = errors.New("tessera: malformed stream record")

// Config holds configuration for the Handler.
type Config struct {
	// Consistency is used for repair writes.
	// Default: Quorum
	Consistency store.Consistency

	// Logger receives progress output.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Consistency: store.Quorum}
}

func (c *Config) validate() {
	if c.Consistency == store.Any {
		c.Consistency = store.Quorum
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Handler processes DynamoDB stream events of primary tables.
type Handler struct {
	session *dynamo.Session
	stores  map[string]*store.Store
	config  Config
}

// NewHandler creates a handler for the primary tables of stores, resolved
// through session.
func NewHandler(session *dynamo.Session, stores []*store.Store, config Config) *Handler {
	config.validate()
	h := &Handler{
		session: session,
		stores:  make(map[string]*store.Store, len(stores)),
		config:  config,
	}
	for _, s := range stores {
		h.stores[s.Entity().Name()] = s
	}
	return h
}

// HandleProjectionRepair processes a batch of stream records in order. It is
// designed to be used as an AWS Lambda handler with ReportBatchItemFailures
// enabled: processing stops at the first failing record, which is reported
// along with the error so it and its successors are retried.
func (h *Handler) HandleProjectionRepair(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse
	for i := range event.Records {
		record := &event.Records[i]
		if err := h.processRecord(ctx, record); err != nil {
			h.config.Logger.ErrorContext(ctx, "failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: record.Change.SequenceNumber,
			})
			return resp, err
		}
	}
	return resp, nil
}

// processRecord repairs every indexed value that left the row in one change.
func (h *Handler) processRecord(ctx context.Context, record *events.DynamoDBEventRecord) error {
	if record.EventName != "MODIFY" && record.EventName != "REMOVE" {
		return nil
	}

	st, t, ok := h.resolve(record.EventSourceArn)
	if !ok {
		return nil
	}

	old, err := dynamo.DecodeItem(t, ConvertStreamImage(record.Change.OldImage))
	if err != nil {
		return fmt.Errorf("%w: old image: %v", ErrMalformedRecord, err)
	}
	cur, err := dynamo.DecodeItem(t, ConvertStreamImage(record.Change.NewImage))
	if err != nil {
		return fmt.Errorf("%w: new image: %v", ErrMalformedRecord, err)
	}

	group, id := old[schema.ColGroup], old[schema.ColID]
	if group.Kind() != store.KindInt || id.Kind() != store.KindInt {
		return fmt.Errorf("%w: old image has no key", ErrMalformedRecord)
	}

	for _, f := range st.Entity().Indexed() {
		stale := old[f.Name]
		if stale.IsNull() || stale.Equal(cur[f.Name]) {
			continue
		}
		h.config.Logger.DebugContext(ctx, "value left row",
			"table", t.Name,
			"group", group.AsInt(),
			"id", id.AsInt(),
			"field", f.Name,
		)
		if err := st.RepairProjection(ctx, group.AsInt(), id.AsInt(), f.Name, stale, h.config.Consistency); err != nil {
			return fmt.Errorf("repair %s.%s: %w", t.Name, f.Name, err)
		}
	}
	return nil
}

// resolve maps a stream ARN to the store and primary table it belongs to.
func (h *Handler) resolve(arn string) (*store.Store, schema.Table, bool) {
	name := TableFromARN(arn)
	if name == "" {
		return nil, schema.Table{}, false
	}
	t, ok := h.session.Table(name)
	if !ok || t.Kind != schema.KindPrimary {
		return nil, schema.Table{}, false
	}
	st, ok := h.stores[t.Name]
	if !ok {
		return nil, schema.Table{}, false
	}
	return st, t, true
}

// TableFromARN extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:region:account:table/NAME/stream/LABEL.
func TableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/stream/")
	return name
}

// ConvertStreamImage converts a stream image to SDK attribute values.
// Set, list and map attributes are skipped; generated tables never hold them.
func ConvertStreamImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		case events.DataTypeBoolean:
			result[k] = &types.AttributeValueMemberBOOL{Value: v.Boolean()}
		case events.DataTypeNull:
			result[k] = &types.AttributeValueMemberNULL{Value: true}
		}
	}
	return result
}
