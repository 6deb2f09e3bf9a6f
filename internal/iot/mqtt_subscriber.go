package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSubscriber recibe los mensajes de los sensores directamente de un
// broker MQTT, para instalaciones sin AWS IoT.
type MQTTSubscriber struct {
	client  paho.Client
	topic   string
	handler EventHandler
}

func NewMQTTSubscriber(broker, clientID, topic string, handler EventHandler) *MQTTSubscriber {
	s := &MQTTSubscriber{topic: topic, handler: handler}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			// Las suscripciones se renuevan en cada reconexión.
			token := c.Subscribe(s.topic, 1, s.onMessage)
			if token.WaitTimeout(10*time.Second) && token.Error() != nil {
				log.Printf("MQTTSubscriber: error al suscribirse a %s: %v", s.topic, token.Error())
				return
			}
			log.Printf("MQTTSubscriber: suscrito a %s", s.topic)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("MQTTSubscriber: conexión perdida: %v", err)
		})
	s.client = paho.NewClient(opts)
	return s
}

// Start conecta al broker y queda recibiendo hasta que ctx termina.
func (s *MQTTSubscriber) Start(ctx context.Context) error {
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("tiempo agotado al conectar al broker MQTT")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("error al conectar al broker MQTT: %w", err)
	}
	<-ctx.Done()
	s.client.Disconnect(1000)
	log.Println("MQTTSubscriber: detenido.")
	return nil
}

func (s *MQTTSubscriber) onMessage(_ paho.Client, msg paho.Message) {
	body, err := withTopic(msg.Payload(), msg.Topic())
	if err != nil {
		log.Printf("MQTTSubscriber: mensaje inválido en %s: %v", msg.Topic(), err)
		body = msg.Payload()
	}
	if err := s.handler.HandleDeviceEvent(context.Background(), string(body)); err != nil {
		log.Printf("MQTTSubscriber: %v", err)
	}
}

// withTopic agrega al mensaje el tópico de origen y, si falta, el device_id
// tomado del último segmento del tópico, como hace la regla de AWS IoT.
func withTopic(payload []byte, topic string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("payload vacío")
	}
	t, _ := json.Marshal(topic)
	fields["received_mqtt_topic"] = t
	if _, ok := fields["device_id"]; !ok {
		id, _ := json.Marshal(topic[strings.LastIndex(topic, "/")+1:])
		fields["device_id"] = id
	}
	return json.Marshal(fields)
}
