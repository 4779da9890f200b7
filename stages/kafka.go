package stages

import (
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/yossideutsch1973/vidpipe/core"
)

// Kafka publishes every frame to a topic in the frame log wire
// format, with the frame geometry repeated in record headers so
// consumers can filter without decoding. Params: "broker" (default
// localhost:9092), "topic" (default vidpipe.frames).
type Kafka struct {
	*core.StageBase

	broker string
	topic  string
	client *kgo.Client
	count  uint64
}

func NewKafka(parent *core.StageBase) core.Stage {
	s := &Kafka{StageBase: parent}

	o := &s.Options
	o.Descr = "publish frames to a Kafka topic"
	o.IsSink = true

	s.broker = s.ParamString("broker", "localhost:9092")
	s.topic = s.ParamString("topic", "vidpipe.frames")
	return s
}

func (s *Kafka) Prepare() error {
	s.Info().Str("broker", s.broker).Str("topic", s.topic).Msg("connecting")

	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.DefaultProduceTopic(s.topic),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return s.Errorf("kafka client: %w", err)
	}
	s.client = client

	// make sure the topic exists
	adm := kadm.NewClient(client)
	topics, err := adm.ListTopics(s.Ctx, s.topic)
	if err != nil {
		return s.Errorf("list topics: %w", err)
	}
	if !topics.Has(s.topic) {
		if _, err := adm.CreateTopic(s.Ctx, 1, 1, nil, s.topic); err != nil {
			return s.Errorf("create topic: %w", err)
		}
		s.Info().Str("topic", s.topic).Msg("topic created")
	}

	return nil
}

func (s *Kafka) Process(in *core.Frame) (*core.Frame, error) {
	bb := framelog_pool.Get()
	encodeFrame(bb, in)

	rec := &kgo.Record{
		Value: append([]byte(nil), bb.B...),
		Headers: []kgo.RecordHeader{
			{Key: "geometry", Value: fmt.Appendf(nil, "%dx%dx%d", in.Width, in.Height, in.Channels)},
			{Key: "timestamp", Value: fmt.Appendf(nil, "%d", in.Timestamp)},
		},
	}
	framelog_pool.Put(bb)

	if err := s.client.ProduceSync(s.Ctx, rec).FirstErr(); err != nil {
		return nil, s.Errorf("produce: %w", err)
	}
	s.count++
	return in, nil
}

func (s *Kafka) Stop() error {
	if s.client == nil {
		return nil
	}
	s.client.Close()
	s.client = nil
	s.Info().Uint64("frames", s.count).Msg("kafka producer closed")
	return nil
}
