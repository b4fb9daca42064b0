package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	grpcapi "live-interview-service/internal/api/grpc"
)

func main() {
	grpcAddr := flag.String("grpc", "localhost:50051", "gRPC server address")
	apiBase := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	meetingID := flag.String("meeting", "smoke-"+time.Now().Format("150405"), "Meeting ID")
	record := flag.Duration("record", 10*time.Second, "How long to record before stopping")
	settle := flag.Duration("settle", 10*time.Second, "How long to wait for the final segment after stopping")
	flag.Parse()

	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("health check failed: %v", err)
	}
	log.Printf("Health: %s", health.Status)

	client := &http.Client{Timeout: 30 * time.Second}
	base := strings.TrimRight(*apiBase, "/") + "/v1/sessions/" + *meetingID

	log.Printf("Starting session for meeting %s", *meetingID)
	printJSON(call(client, http.MethodPost, base+"/start"))

	time.Sleep(*record)

	sessions := grpcapi.NewSessionClient(conn)
	statusCtx, statusCancel := context.WithTimeout(context.Background(), 5*time.Second)
	snap, err := sessions.GetSession(statusCtx, *meetingID)
	statusCancel()
	if err != nil {
		log.Fatalf("GetSession failed: %v", err)
	}
	log.Println("Session status (gRPC):")
	printJSON([]byte(protojson.Format(snap)))

	log.Println("Stopping session")
	printJSON(call(client, http.MethodPost, base+"/stop"))

	time.Sleep(*settle)

	log.Println("Transcript:")
	printJSON(call(client, http.MethodGet, base+"/transcript"))
	log.Println("Suggestions:")
	printJSON(call(client, http.MethodGet, base+"/suggestions"))
	log.Println("Notifications:")
	printJSON(call(client, http.MethodGet, base+"/notifications"))

	call(client, http.MethodDelete, base)
	log.Println("Session closed")
}

func call(client *http.Client, method, url string) []byte {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("%s %s: %s: %s", method, url, resp.Status, body)
	}
	return body
}

func printJSON(raw []byte) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
