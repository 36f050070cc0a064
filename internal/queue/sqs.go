package queue

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"codemash/internal/ports"
)

const SQSEndpointEnvKey = "SQS_ENDPOINT"

// SQS adapts an aws-sdk-go-v2 SQS client to the ports.Queue contract.
type SQS struct {
	cli       *sqs.Client
	queueURL  string
	batchSize int32
	waitTime  time.Duration
}

// NewSQS resolves the queue URL by name and returns the adapter. batchSize
// bounds one receive (at most 10 per the SQS API), waitTime is the long-poll
// duration in whole seconds.
func NewSQS(ctx context.Context, cli *sqs.Client, queueName string, batchSize int32, waitTime time.Duration) (*SQS, error) {
	out, err := cli.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return nil, fmt.Errorf("resolve queue %s: %w", queueName, err)
	}
	return &SQS{
		cli:       cli,
		queueURL:  aws.ToString(out.QueueUrl),
		batchSize: batchSize,
		waitTime:  waitTime,
	}, nil
}

func (q *SQS) Receive(ctx context.Context) ([]ports.Message, error) {
	out, err := q.cli.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: q.batchSize,
		WaitTimeSeconds:     int32(q.waitTime / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receive from games queue: %w", err)
	}
	msgs := make([]ports.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, ports.Message{
			ID:            aws.ToString(m.MessageId),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (q *SQS) Delete(ctx context.Context, msg ports.Message) error {
	_, err := q.cli.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	return nil
}

// ClientFromEnv creates an SQS client from the ambient AWS configuration,
// honoring SQS_ENDPOINT for local testing against an emulator.
func ClientFromEnv(ctx context.Context) (*sqs.Client, error) {
	var endpoint *string
	if e := os.Getenv(SQSEndpointEnvKey); e != "" {
		endpoint = aws.String(e)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	cli := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != nil {
			// This is used for testing only locally
			o.BaseEndpoint = endpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			credProvider := credentials.NewStaticCredentialsProvider("test", "test", "")
			o.Credentials = credProvider
		}
	})
	return cli, nil
}
