package main

import (
	"flag"
	"log"
	"os"
	"reflect"

	"github.com/robotalks/framelink/pkg/l1/mqtt"
	"github.com/robotalks/framelink/pkg/l1/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/epicure/"
	topics  = map[string]bool{
		"stats":   true,
		"results": true,
		"device":  true,
	}
)

func init() {
	if val := os.Getenv("FRAMELINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL, "mon")
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if !topics[topic] {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			msg.(msgs.SerializableMessage).Serializable().String())
	}))
	<-(chan struct{})(nil)
}
