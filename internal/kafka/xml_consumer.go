package kafka

import "encoding/xml"

// NewXMLConsumer - обработчик топика XML-запросов на расчет цены
func NewXMLConsumer(r Reader, w Writer, q Quoter) *Consumer {
	return newConsumer("xml", xml.Unmarshal, xml.Marshal, r, w, q)
}
