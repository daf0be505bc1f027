package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestPublisher_Publish(t *testing.T) {
	fake := &fakeSNS{}
	p := NewPublisherWithClient(fake, "arn:aws:sns:ap-northeast-1:123:matches")

	id, err := p.Publish(context.Background(), "matches.created", map[string]interface{}{"customerId": "c1"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "arn:aws:sns:ap-northeast-1:123:matches", aws.ToString(fake.input.TopicArn))
	assert.JSONEq(t, `{"customerId":"c1"}`, aws.ToString(fake.input.Message))
	assert.Equal(t, "matches.created", aws.ToString(fake.input.MessageAttributes["eventType"].StringValue))
}

func TestPublisher_PublishError(t *testing.T) {
	p := NewPublisherWithClient(&fakeSNS{err: errors.New("throttled")}, "arn")

	_, err := p.Publish(context.Background(), "matches.created", struct{}{})
	assert.ErrorContains(t, err, "throttled")
}
