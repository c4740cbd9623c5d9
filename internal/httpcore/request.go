package httpcore

// Request is the embedded, reused-in-place request object. It is
// zero-valued at Connection creation and after every Reset. All string
// fields are owned copies; the body is the sole exception — it is a
// borrow into the owning Connection's read buffer and is only valid
// until the next Reset.
type Request struct {
	Method        string
	RawURI        string
	Path          string
	HasQuery      bool
	RawQuery      string
	DecodedQuery  string
	MinorVersion  int
	KeepAlive     bool
	ContentLength int

	Headers     headerList
	QueryParams paramList
	BodyParams  paramList

	// JSON is the parsed document when Content-Type was application/json
	// and parsing succeeded.
	JSON    any
	HasJSON bool

	// AuthUser is filled by handlers, never by the core.
	AuthUser string

	// bodyOffset is the index into the owning Connection's read buffer
	// where the body window starts. Valid only while state is Complete
	// or Sending for this request.
	bodyOffset int
}

// reset zero-values every owned field.
func (r *Request) reset() {
	r.Headers.reset()
	r.QueryParams.reset()
	r.BodyParams.reset()
	*r = Request{
		Headers:     r.Headers,
		QueryParams: r.QueryParams,
		BodyParams:  r.BodyParams,
	}
}

// Header looks up a request header case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	return r.Headers.Get(name)
}
