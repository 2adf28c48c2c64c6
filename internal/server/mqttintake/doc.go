// Package mqttintake subscribes to a broker topic and feeds published
// readings into the sensor service. It is an optional alternative to
// the TCP intake for sites that already run an MQTT bus: devices
// publish JSON readings in the API wire shape and the subscriber
// ingests them as they arrive.
package mqttintake
