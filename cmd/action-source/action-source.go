package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// action-source is a development upstream for forward actions: it answers
// any POST with a small JSON document derived from the request, so an
// action-bus instance can be pointed at it while building configs.
func main() {
	gin.SetMode(gin.TestMode)
	port := flag.String("port", "9999", "port to listen on")
	silent := flag.Bool("silent", false, "disable all logging")
	flag.Parse()

	if *silent {
		log.SetOutput(io.Discard)
	}

	r := gin.New()

	r.POST("/*path", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)

		// add a wait to simulate a slow upstream
		if wait, err := time.ParseDuration(c.Query("wait")); err == nil {
			time.Sleep(wait)
		}

		id := gjson.GetBytes(body, "id").Int()
		if id == 0 {
			id = gjson.ParseBytes(body).Int()
		}

		c.JSON(http.StatusOK, gin.H{
			"id":       id,
			"value":    id * 2,
			"path":     c.Param("path"),
			"received": string(body),
			"at":       time.Now().Unix(),
		})
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		os.Exit(0)
	}()

	log.Printf("action-source listening on :%s", *port)
	if err := r.Run(":" + *port); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}
