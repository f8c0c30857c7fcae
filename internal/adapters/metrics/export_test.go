package metrics

// CloseListener cierra el listener sin pasar por Serve.
func (s *Server) CloseListener() error { return s.ln.Close() }
