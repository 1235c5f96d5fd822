package kafka

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	HeaderEventType   = "event-type"
	HeaderEventID     = "event-id"
	HeaderContentType = "content-type"

	contentTypeStruct = "application/x-protobuf; messageType=google.protobuf.Struct"
)

// EncodeOutboxEvent упаковывает событие outbox в google.protobuf.Struct:
// {eventId, eventType, aggregateId, occurredAt, data}.
func EncodeOutboxEvent(event *usecase.OutboxEvent) (*usecase.WriteRawMessageReq, error) {
	const op = "kafka.EncodeOutboxEvent"

	var data map[string]any
	if err := json.Unmarshal(event.Payload, &data); err != nil {
		return nil, e.Wrap(op, err)
	}

	dataStruct, err := structpb.NewStruct(data)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	eventID := strconv.FormatInt(event.ID, 10)
	envelope := &structpb.Struct{Fields: map[string]*structpb.Value{
		"eventId":     structpb.NewStringValue(eventID),
		"eventType":   structpb.NewStringValue(string(event.EventType)),
		"aggregateId": structpb.NewStringValue(event.AggregateID),
		"occurredAt":  structpb.NewStringValue(event.CreatedAt.UTC().Format(time.RFC3339Nano)),
		"data":        structpb.NewStructValue(dataStruct),
	}}

	payload, err := proto.Marshal(envelope)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return usecase.NewWriteRawMessageReq(event.AggregateID, payload, map[string]string{
		HeaderEventType:   string(event.EventType),
		HeaderEventID:     eventID,
		HeaderContentType: contentTypeStruct,
	}), nil
}
