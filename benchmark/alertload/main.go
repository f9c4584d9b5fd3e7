package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var maxSenders int = 200
var alertsPerSender int = 5
var httpHostPort string = "127.0.0.1:1080"
var clientIP string = "127.0.0.1"

var buttons = []string{"Robo", "Incendio"}
var priorities = []string{"", "Baja", "Media", "Alta"}

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var sent, limited, failed atomic.Int64

func main() {
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	// lift the per-client limit so the run measures the send path
	postJSON(fmt.Sprintf("/clients/%s/limiter", clientIP), map[string]any{"rate": 100000, "burst": 100000})

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := range maxSenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sender := uuid.NewString()[:8]
			for j := range alertsPerSender {
				sendAlert(fmt.Sprintf("%s #%d", sender, j))
			}
			fmt.Printf("\rsender %v done", i)
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	total := maxSenders * alertsPerSender
	fmt.Printf(
		"\rsent %v alerts: used time=%v seconds, throughput=%v alert/second (ok=%v, limited=%v, failed=%v)\n",
		total, usedTime.Seconds(), float64(total)/usedTime.Seconds(), sent.Load(), limited.Load(), failed.Load(),
	)

	startTime = time.Now()
	resp, err = http.Get(fmt.Sprintf("http://%s/alerts", httpHostPort))
	if err != nil {
		log.Fatal("Failed to list alerts:", err)
	}
	var records []json.RawMessage
	err = json.NewDecoder(resp.Body).Decode(&records)
	resp.Body.Close()
	if err != nil {
		log.Fatal("Failed to decode alerts:", err)
	}
	fmt.Printf("listed %v alerts in %v seconds\n", len(records), time.Since(startTime).Seconds())
}

func pick(values []string) string {
	rndMu.Lock()
	defer rndMu.Unlock()
	return values[rnd.Intn(len(values))]
}

func sendAlert(message string) {
	payload := map[string]string{
		"name":    pick(buttons),
		"message": message,
	}
	if p := pick(priorities); p != "" {
		payload["priority"] = p
	}

	status := postJSON("/alerts/send", payload)
	switch {
	case status == http.StatusOK:
		sent.Add(1)
	case status == http.StatusTooManyRequests:
		limited.Add(1)
	default:
		failed.Add(1)
	}
}

func postJSON(path string, payload any) int {
	jsonData, _ := json.Marshal(payload)
	resp, err := http.Post(fmt.Sprintf("http://%s%s", httpHostPort, path), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}
