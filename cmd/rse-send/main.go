package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/rackerlabs/rse/internal/pkg/service/api"
	"github.com/rackerlabs/rse/internal/pkg/utils"
)

var (
	url     = kingpin.Flag("url", "RSE server URL").Short('u').Default("http://localhost:8000").String()
	channel = kingpin.Flag("channel", "Channel to post to").Short('c').Default("test").String()
	count   = kingpin.Flag("count", "Number of events to post").Short('n').Default("1").Int()
	token   = kingpin.Flag("token", "Auth token").Short('t').String()
	data    = kingpin.Flag("data", "Event payload").Default(`{"msg":"test"}`).String()
)

func main() {
	kingpin.Parse()
	if _, err := utils.ParseURL(*url); err != nil {
		log.Fatalf("wrong url '%s': %v", *url, err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	for i := 0; i < *count; i++ {
		ev, err := post(client)
		if err != nil {
			log.Fatalf("can't post event: %v", err)
		}
		fmt.Printf("posted event %d (uuid %s)\n", ev.ID, ev.UUID)
	}
}

func post(client *http.Client) (*api.Event, error) {
	body, err := json.Marshal(api.Event{Data: *data})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, *url+"/"+*channel, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("X-Auth-Token", *token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("got status %s", resp.Status)
	}
	var res api.Event
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
