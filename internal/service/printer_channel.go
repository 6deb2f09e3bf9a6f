package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"kiosko_estacionamiento/internal/domain"
)

// IoTPublisher es la parte del cliente de AWS IoT data plane que se usa.
type IoTPublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// PrinterDevice es el canal hacia el hardware del estacionamiento: la
// impresora térmica y los letreros de cada espacio.
type PrinterDevice interface {
	Enabled() bool
	SendTicket(ctx context.Context, ticketID, puerto string, datos []byte) error
	PublishSpaceStatus(ctx context.Context, space domain.Space) error
}

const spaceStatusTopic = "estacionamiento/espacios/%s"

// PrinterChannel publica por MQTT (AWS IoT) el flujo ESC/POS de los tickets
// y el estado de los espacios. Sin cliente queda deshabilitado.
type PrinterChannel struct {
	client IoTPublisher
	topic  string
}

func NewPrinterChannel(client IoTPublisher, topic string) *PrinterChannel {
	return &PrinterChannel{client: client, topic: topic}
}

func (c *PrinterChannel) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *PrinterChannel) SendTicket(ctx context.Context, ticketID, puerto string, datos []byte) error {
	if !c.Enabled() {
		return ErrPrinterNotConfigured
	}
	payload, err := json.Marshal(domain.PrinterCommandPayload{
		TicketID: ticketID,
		Puerto:   puerto,
		Formato:  "escpos",
		Datos:    datos,
	})
	if err != nil {
		return fmt.Errorf("error al serializar el ticket: %w", err)
	}

	log.Printf("PrinterChannel: publicando ticket %s (%d bytes) en %s", ticketID, len(datos), c.topic)
	_, err = c.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(c.topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("error al publicar el ticket por MQTT: %w", err)
	}
	return nil
}

func (c *PrinterChannel) PublishSpaceStatus(ctx context.Context, space domain.Space) error {
	if !c.Enabled() {
		return nil
	}
	momento := time.Now().UTC()
	if space.UltimaActualizacion.Valid {
		momento = space.UltimaActualizacion.Time
	}
	payload, err := json.Marshal(domain.SpaceStatusPayload{
		Espacio: space.ID,
		Estado:  space.Estado,
		Momento: momento.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("error al serializar el estado del espacio: %w", err)
	}
	_, err = c.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(fmt.Sprintf(spaceStatusTopic, space.ID)),
		Qos:     1,
		Retain:  true,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("error al publicar el estado del espacio %s: %w", space.ID, err)
	}
	return nil
}
