package server

import "bytes"

// 応答ステータス行
const (
	StatusOK       = "HTTP/1.1 200 OK"
	StatusNotFound = "HTTP/1.1 404 NOT FOUND"
	StatusInternal = "HTTP/1.1 500 INTERNAL SERVER ERROR"
)

// 応答本文のファイル名
const (
	PageHello    = "hello.html"
	PageNotFound = "404.html"
)

var (
	requestRoot  = []byte("GET / HTTP/1.1\r\n")
	requestSleep = []byte("GET /sleep HTTP/1.1\r\n")
)

// Route はリクエストに対する応答の決定結果
type Route struct {
	Status string
	Page   string
	Sleep  bool // 応答前に SleepDelay だけ待つ
}

// Match はリクエストの先頭行から応答を決める
func Match(request []byte) Route {
	switch {
	case bytes.HasPrefix(request, requestRoot):
		return Route{Status: StatusOK, Page: PageHello}
	case bytes.HasPrefix(request, requestSleep):
		return Route{Status: StatusOK, Page: PageHello, Sleep: true}
	default:
		return Route{Status: StatusNotFound, Page: PageNotFound}
	}
}
