package kafka

import "encoding/json"

// NewJSONConsumer - обработчик топика JSON-запросов на расчет цены
func NewJSONConsumer(r Reader, w Writer, q Quoter) *Consumer {
	return newConsumer("json", json.Unmarshal, json.Marshal, r, w, q)
}
