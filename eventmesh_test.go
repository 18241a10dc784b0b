package eventmesh

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/eventmesh/agent"
	"github.com/hupe1980/eventmesh/aggregator"
	"github.com/hupe1980/eventmesh/core"
)

func TestMesh_SingleSubscriber(t *testing.T) {
	m := New()
	s := agent.NewCollectorAgent("S")
	m.Subscribe("TestEvent", s)

	m.Dispatch(core.NewDataEvent("TestEvent", "Src", map[string]any{"data": "test data"}))
	m.Start()
	require.True(t, m.Drain(context.Background(), time.Second))
	require.NoError(t, m.Stop(context.Background()))

	got := s.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "test data", got[0].DataString("data"))
}

// Fan-out to two workers and fan-in through an aggregator: the "ask a
// question, answer and fact-check in parallel, combine" composition.
func TestMesh_FanOutFanIn(t *testing.T) {
	m := New()

	answerer := agent.NewFunctionAgent("answerer", func(_ context.Context, ev core.Event) ([]core.Event, error) {
		out := ev.Derive("AnswerEvent", "answerer").WithData("answer", "42")
		return []core.Event{out}, nil
	})
	factChecker := agent.NewFunctionAgent("fact-checker", func(_ context.Context, ev core.Event) ([]core.Event, error) {
		out := ev.Derive("FactCheckEvent", "fact-checker").WithData("verdict", "plausible")
		return []core.Event{out}, nil
	})
	combiner := aggregator.New("combiner", []string{"AnswerEvent", "FactCheckEvent"},
		func(_ context.Context, events []core.Event) ([]core.Event, error) {
			var answer, verdict string
			for _, ev := range events {
				switch ev.Type {
				case "AnswerEvent":
					answer = ev.DataString("answer")
				case "FactCheckEvent":
					verdict = ev.DataString("verdict")
				}
			}
			out := events[0].Derive("FinalAnswerEvent", "combiner").
				WithData("final", fmt.Sprintf("%s (%s)", answer, verdict))
			return []core.Event{out}, nil
		})
	final := agent.NewCollectorAgent("final")

	m.Subscribe("QuestionEvent", answerer)
	m.Subscribe("QuestionEvent", factChecker)
	m.Subscribe("AnswerEvent", combiner)
	m.Subscribe("FactCheckEvent", combiner)
	m.Subscribe("FinalAnswerEvent", final)

	m.Start()
	question := core.NewDataEvent("QuestionEvent", "cli", map[string]any{"question": "What is the answer?"})
	question.CorrelationID = "q1"
	m.Dispatch(question)

	events, err := combiner.WaitForEvents(context.Background(), "q1", 2*time.Second)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	require.Eventually(t, func() bool { return final.Len() == 1 },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, "42 (plausible)", final.Events()[0].DataString("final"))
	assert.Equal(t, "q1", final.Events()[0].CorrelationID)
}

func TestMesh_TerminateConvention(t *testing.T) {
	m := New()
	m.Subscribe(core.EventTypeTerminate, agent.NewTerminateAgent("shutdown", m.Dispatcher().Stop))

	m.Start()
	require.True(t, m.IsRunning())

	m.Dispatch(core.NewTerminateEvent("test"))
	require.Eventually(t, func() bool { return !m.IsRunning() },
		2*time.Second, 5*time.Millisecond)
}
