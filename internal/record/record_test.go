package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedsindex/internal/topic"
)

func TestNew(t *testing.T) {
	topics := []topic.Tag{topic.Energy, topic.Health}
	r, err := New("https://a.example/", topics...)
	require.NoError(t, err)
	assert.Empty(t, r.ID)
	assert.Equal(t, "https://a.example/", r.Location)
	assert.Equal(t, topics, r.Topics)

	topics[0] = topic.Transport
	assert.Equal(t, topic.Energy, r.Topics[0], "New must copy the topic slice")
}

func TestNew_Validation(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("://nope")
	assert.Error(t, err)

	_, err = New("https://a.example/", topic.Any)
	assert.Error(t, err)
}

func TestHasTopic(t *testing.T) {
	r := Record{Topics: []topic.Tag{topic.Education}}
	assert.True(t, r.HasTopic(topic.Education))
	assert.False(t, r.HasTopic(topic.Health))
	assert.False(t, Record{}.HasTopic(topic.Education))
}

func TestClone_Independent(t *testing.T) {
	r := Record{ID: "0x1", Location: "https://a.example/", Topics: []topic.Tag{topic.Energy}}
	c := r.Clone()
	c.Topics[0] = topic.Health
	assert.Equal(t, topic.Energy, r.Topics[0])
}

func TestEqual_IgnoresID(t *testing.T) {
	a := Record{ID: "0x1", Location: "https://a.example/", Topics: []topic.Tag{topic.Energy}}
	b := Record{ID: "0x2", Location: "https://a.example/", Topics: []topic.Tag{topic.Energy}}
	assert.True(t, a.Equal(b))

	b.Topics = nil
	assert.False(t, a.Equal(b))
}
