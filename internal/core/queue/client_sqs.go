package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	cfg "github.com/docharbor/docharbor/internal/config"
	"github.com/docharbor/docharbor/internal/core"
)

type SQSClient struct {
	client            *sqs.Client
	queueURL          string
	waitSeconds       int32
	visibilityTimeout int32
	maxMessages       int32
}

var _ core.QueueClient = (*SQSClient)(nil)

func NewSQSClient(ctx context.Context, cfg *cfg.Config) (*SQSClient, error) {
	if cfg.SQSQueueURL == "" {
		return nil, core.ErrQueueURLNotSet
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AwsRegion),
	}
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.SQSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SQSEndpoint)
		}
	})
	log.Printf("SQS client ready for %s", cfg.SQSQueueURL)

	return &SQSClient{
		client:            client,
		queueURL:          cfg.SQSQueueURL,
		waitSeconds:       int32(cfg.SQSWaitSeconds),
		visibilityTimeout: int32(cfg.SQSVisibilityTimeout),
		maxMessages:       int32(cfg.SQSMaxMessages),
	}, nil
}

func (c *SQSClient) Send(ctx context.Context, body string) error {
	_, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

// Receive long-polls the queue. An empty slice means the wait elapsed with
// nothing to do; the caller just polls again.
func (c *SQSClient) Receive(ctx context.Context) ([]core.QueueMessage, error) {
	resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.maxMessages,
		WaitTimeSeconds:     c.waitSeconds,
		VisibilityTimeout:   c.visibilityTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	out := make([]core.QueueMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, core.QueueMessage{
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return out, nil
}

func (c *SQSClient) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}
