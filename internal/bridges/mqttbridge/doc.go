// Package mqttbridge implements the adapter contract over MQTT,
// delegating radio work to an external bridge process per protocol.
//
// # Topic scheme
//
// The hub publishes commands on hearth/command/{protocol}/{deviceID}
// and requests on hearth/request/{protocol}/{requestID}. The bridge
// answers on the matching ack and response topics and announces found
// devices on hearth/discovery/{protocol} during a sweep.
//
// # Correlation
//
// Every command and request carries a generated ID. One wildcard
// subscription per topic family routes replies back to the waiting
// caller; replies with no waiter are logged and dropped.
package mqttbridge
