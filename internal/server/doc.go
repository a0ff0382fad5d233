// Package server is the TCP front end that feeds the worker pool.
//
// Every accepted connection becomes exactly one job: the job reads the
// request, picks a page by matching the request line, reads that page from
// the document root and writes the response on the same connection.
//
//	GET / HTTP/1.1       -> 200 hello.html
//	GET /sleep HTTP/1.1  -> 200 hello.html after SleepDelay
//	anything else        -> 404 404.html
//
// When the pool refuses a job (it is shutting down) the connection is
// closed without a response.
package server
