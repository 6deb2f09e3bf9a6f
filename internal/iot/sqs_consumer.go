package iot

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// EventHandler procesa el cuerpo de un mensaje de los sensores.
type EventHandler interface {
	HandleDeviceEvent(ctx context.Context, body string) error
}

// SQSAPI es la parte del cliente SQS que usa el consumidor.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer lee la cola donde la regla de AWS IoT deja los mensajes de los
// sensores. Un mensaje que falla no se borra y vuelve tras el visibility timeout.
type SQSConsumer struct {
	client   SQSAPI
	queueURL string
	handler  EventHandler
	retry    time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, handler EventHandler) *SQSConsumer {
	return &SQSConsumer{client: client, queueURL: queueURL, handler: handler, retry: 5 * time.Second}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQSConsumer: escuchando la cola %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQSConsumer: detenido.")
			return
		default:
		}
		if err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("SQSConsumer: error al recibir mensajes: %v", err)
			select {
			case <-time.After(c.retry):
			case <-ctx.Done():
			}
		}
	}
}

// poll hace una recepción larga y procesa lo recibido.
func (c *SQSConsumer) poll(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return err
	}
	if len(result.Messages) > 0 {
		log.Printf("SQSConsumer: %d mensaje(s) recibidos", len(result.Messages))
	}
	for _, message := range result.Messages {
		if message.Body == nil {
			log.Println("SQSConsumer: mensaje sin cuerpo, se elimina")
			c.deleteMessage(ctx, message.ReceiptHandle)
			continue
		}
		if err := c.handler.HandleDeviceEvent(ctx, *message.Body); err != nil {
			id := ""
			if message.MessageId != nil {
				id = *message.MessageId
			}
			log.Printf("SQSConsumer: error al procesar el mensaje %s: %v; se reintentará", id, err)
			continue
		}
		c.deleteMessage(ctx, message.ReceiptHandle)
	}
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQSConsumer: mensaje sin receipt handle, no se puede eliminar")
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("SQSConsumer: error al eliminar el mensaje: %v", err)
	}
}
