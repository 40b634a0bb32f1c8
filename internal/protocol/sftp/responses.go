package sftp

// Response is a server reply that knows its packet type and payload layout.
type Response interface {
	PacketType() PacketType
	encode(w *Writer)
}

// VersionResponse is SSH_FXP_VERSION.
type VersionResponse struct {
	Version    uint32
	Extensions []Extension
}

// StatusResponse is SSH_FXP_STATUS.
type StatusResponse struct {
	ID       uint32
	Code     StatusCode
	Message  string
	Language string
}

// HandleResponse is SSH_FXP_HANDLE.
type HandleResponse struct {
	ID     uint32
	Handle string
}

// DataResponse is SSH_FXP_DATA.
type DataResponse struct {
	ID   uint32
	Data []byte
}

// NameEntry is one entry of an SSH_FXP_NAME reply.
type NameEntry struct {
	Filename string
	Longname string
	Attrs    Attrs
}

// NameResponse is SSH_FXP_NAME.
type NameResponse struct {
	ID      uint32
	Entries []NameEntry
}

// AttrsResponse is SSH_FXP_ATTRS.
type AttrsResponse struct {
	ID    uint32
	Attrs Attrs
}

// NewStatus builds a status reply with the code's default message.
func NewStatus(id uint32, code StatusCode) *StatusResponse {
	return &StatusResponse{ID: id, Code: code, Message: code.Message(), Language: "en"}
}

func (*VersionResponse) PacketType() PacketType { return PacketVersion }
func (*StatusResponse) PacketType() PacketType  { return PacketStatus }
func (*HandleResponse) PacketType() PacketType  { return PacketHandle }
func (*DataResponse) PacketType() PacketType    { return PacketData }
func (*NameResponse) PacketType() PacketType    { return PacketName }
func (*AttrsResponse) PacketType() PacketType   { return PacketAttrs }

func (r *VersionResponse) encode(w *Writer) {
	w.WriteUint32(r.Version)
	for _, ext := range r.Extensions {
		w.WriteString(ext.Name)
		w.WriteString(ext.Data)
	}
}

func (r *StatusResponse) encode(w *Writer) {
	w.WriteUint32(r.ID)
	w.WriteUint32(uint32(r.Code))
	w.WriteString(r.Message)
	w.WriteString(r.Language)
}

func (r *HandleResponse) encode(w *Writer) {
	w.WriteUint32(r.ID)
	w.WriteString(r.Handle)
}

func (r *DataResponse) encode(w *Writer) {
	w.WriteUint32(r.ID)
	w.WriteBytes(r.Data)
}

func (r *NameResponse) encode(w *Writer) {
	w.WriteUint32(r.ID)
	w.WriteUint32(uint32(len(r.Entries)))
	for _, e := range r.Entries {
		w.WriteString(e.Filename)
		w.WriteString(e.Longname)
		WriteAttrs(w, e.Attrs)
	}
}

func (r *AttrsResponse) encode(w *Writer) {
	w.WriteUint32(r.ID)
	WriteAttrs(w, r.Attrs)
}
