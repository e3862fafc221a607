// Code generated by protoc-gen-go. DO NOT EDIT.
// versions:
// 	protoc-gen-go v1.36.11
// 	protoc        (unknown)
// source: runner.proto

package runnerv1

import (
	protoreflect "google.golang.org/protobuf/reflect/protoreflect"
	protoimpl "google.golang.org/protobuf/runtime/protoimpl"
	reflect "reflect"
	sync "sync"
	unsafe "unsafe"
)

const (
	// Verify that this generated code is sufficiently up-to-date.
	_ = protoimpl.EnforceVersion(20 - protoimpl.MinVersion)
	// Verify that runtime/protoimpl is sufficiently up-to-date.
	_ = protoimpl.EnforceVersion(protoimpl.MaxVersion - 20)
)

type RunRequest struct {
	state    protoimpl.MessageState `protogen:"open.v1"`
	JobId    string                 `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	TenantId string                 `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	TraceId  string                 `protobuf:"bytes,3,opt,name=trace_id,json=traceId,proto3" json:"trace_id,omitempty"`
	// JSON-encoded task payload.
	Task          string            `protobuf:"bytes,4,opt,name=task,proto3" json:"task,omitempty"`
	Model         string            `protobuf:"bytes,5,opt,name=model,proto3" json:"model,omitempty"`
	Options       map[string]string `protobuf:"bytes,6,rep,name=options,proto3" json:"options,omitempty" protobuf_key:"bytes,1,opt,name=key" protobuf_val:"bytes,2,opt,name=value"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *RunRequest) Reset() {
	*x = RunRequest{}
	mi := &file_runner_proto_msgTypes[0]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *RunRequest) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*RunRequest) ProtoMessage() {}

func (x *RunRequest) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[0]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use RunRequest.ProtoReflect.Descriptor instead.
func (*RunRequest) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{0}
}

func (x *RunRequest) GetJobId() string {
	if x != nil {
		return x.JobId
	}
	return ""
}

func (x *RunRequest) GetTenantId() string {
	if x != nil {
		return x.TenantId
	}
	return ""
}

func (x *RunRequest) GetTraceId() string {
	if x != nil {
		return x.TraceId
	}
	return ""
}

func (x *RunRequest) GetTask() string {
	if x != nil {
		return x.Task
	}
	return ""
}

func (x *RunRequest) GetModel() string {
	if x != nil {
		return x.Model
	}
	return ""
}

func (x *RunRequest) GetOptions() map[string]string {
	if x != nil {
		return x.Options
	}
	return nil
}

type RunResponse struct {
	state protoimpl.MessageState `protogen:"open.v1"`
	// Types that are valid to be assigned to Content:
	//
	//	*RunResponse_Text
	//	*RunResponse_Thinking
	//	*RunResponse_Progress
	//	*RunResponse_Usage
	//	*RunResponse_Result
	//	*RunResponse_Error
	Content       isRunResponse_Content `protobuf_oneof:"content"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *RunResponse) Reset() {
	*x = RunResponse{}
	mi := &file_runner_proto_msgTypes[1]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *RunResponse) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*RunResponse) ProtoMessage() {}

func (x *RunResponse) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[1]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use RunResponse.ProtoReflect.Descriptor instead.
func (*RunResponse) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{1}
}

func (x *RunResponse) GetContent() isRunResponse_Content {
	if x != nil {
		return x.Content
	}
	return nil
}

func (x *RunResponse) GetText() *TextDelta {
	if x != nil {
		if x, ok := x.Content.(*RunResponse_Text); ok {
			return x.Text
		}
	}
	return nil
}

func (x *RunResponse) GetThinking() *ThinkingDelta {
	if x != nil {
		if x, ok := x.Content.(*RunResponse_Thinking); ok {
			return x.Thinking
		}
	}
	return nil
}

func (x *RunResponse) GetProgress() *ProgressInfo {
	if x != nil {
		if x, ok := x.Content.(*RunResponse_Progress); ok {
			return x.Progress
		}
	}
	return nil
}

func (x *RunResponse) GetUsage() *UsageInfo {
	if x != nil {
		if x, ok := x.Content.(*RunResponse_Usage); ok {
			return x.Usage
		}
	}
	return nil
}

func (x *RunResponse) GetResult() *ResultInfo {
	if x != nil {
		if x, ok := x.Content.(*RunResponse_Result); ok {
			return x.Result
		}
	}
	return nil
}

func (x *RunResponse) GetError() *ErrorInfo {
	if x != nil {
		if x, ok := x.Content.(*RunResponse_Error); ok {
			return x.Error
		}
	}
	return nil
}

type isRunResponse_Content interface {
	isRunResponse_Content()
}

type RunResponse_Text struct {
	Text *TextDelta `protobuf:"bytes,1,opt,name=text,proto3,oneof"`
}

type RunResponse_Thinking struct {
	Thinking *ThinkingDelta `protobuf:"bytes,2,opt,name=thinking,proto3,oneof"`
}

type RunResponse_Progress struct {
	Progress *ProgressInfo `protobuf:"bytes,3,opt,name=progress,proto3,oneof"`
}

type RunResponse_Usage struct {
	Usage *UsageInfo `protobuf:"bytes,4,opt,name=usage,proto3,oneof"`
}

type RunResponse_Result struct {
	Result *ResultInfo `protobuf:"bytes,5,opt,name=result,proto3,oneof"`
}

type RunResponse_Error struct {
	Error *ErrorInfo `protobuf:"bytes,6,opt,name=error,proto3,oneof"`
}

func (*RunResponse_Text) isRunResponse_Content() {}

func (*RunResponse_Thinking) isRunResponse_Content() {}

func (*RunResponse_Progress) isRunResponse_Content() {}

func (*RunResponse_Usage) isRunResponse_Content() {}

func (*RunResponse_Result) isRunResponse_Content() {}

func (*RunResponse_Error) isRunResponse_Content() {}

type TextDelta struct {
	state         protoimpl.MessageState `protogen:"open.v1"`
	Content       string                 `protobuf:"bytes,1,opt,name=content,proto3" json:"content,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *TextDelta) Reset() {
	*x = TextDelta{}
	mi := &file_runner_proto_msgTypes[2]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *TextDelta) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*TextDelta) ProtoMessage() {}

func (x *TextDelta) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[2]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use TextDelta.ProtoReflect.Descriptor instead.
func (*TextDelta) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{2}
}

func (x *TextDelta) GetContent() string {
	if x != nil {
		return x.Content
	}
	return ""
}

type ThinkingDelta struct {
	state         protoimpl.MessageState `protogen:"open.v1"`
	Content       string                 `protobuf:"bytes,1,opt,name=content,proto3" json:"content,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *ThinkingDelta) Reset() {
	*x = ThinkingDelta{}
	mi := &file_runner_proto_msgTypes[3]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *ThinkingDelta) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*ThinkingDelta) ProtoMessage() {}

func (x *ThinkingDelta) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[3]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use ThinkingDelta.ProtoReflect.Descriptor instead.
func (*ThinkingDelta) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{3}
}

func (x *ThinkingDelta) GetContent() string {
	if x != nil {
		return x.Content
	}
	return ""
}

type ProgressInfo struct {
	state         protoimpl.MessageState `protogen:"open.v1"`
	Percent       int32                  `protobuf:"varint,1,opt,name=percent,proto3" json:"percent,omitempty"`
	Detail        string                 `protobuf:"bytes,2,opt,name=detail,proto3" json:"detail,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *ProgressInfo) Reset() {
	*x = ProgressInfo{}
	mi := &file_runner_proto_msgTypes[4]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *ProgressInfo) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*ProgressInfo) ProtoMessage() {}

func (x *ProgressInfo) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[4]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use ProgressInfo.ProtoReflect.Descriptor instead.
func (*ProgressInfo) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{4}
}

func (x *ProgressInfo) GetPercent() int32 {
	if x != nil {
		return x.Percent
	}
	return 0
}

func (x *ProgressInfo) GetDetail() string {
	if x != nil {
		return x.Detail
	}
	return ""
}

type UsageInfo struct {
	state            protoimpl.MessageState `protogen:"open.v1"`
	PromptTokens     int32                  `protobuf:"varint,1,opt,name=prompt_tokens,json=promptTokens,proto3" json:"prompt_tokens,omitempty"`
	CompletionTokens int32                  `protobuf:"varint,2,opt,name=completion_tokens,json=completionTokens,proto3" json:"completion_tokens,omitempty"`
	Cost             float64                `protobuf:"fixed64,3,opt,name=cost,proto3" json:"cost,omitempty"`
	unknownFields    protoimpl.UnknownFields
	sizeCache        protoimpl.SizeCache
}

func (x *UsageInfo) Reset() {
	*x = UsageInfo{}
	mi := &file_runner_proto_msgTypes[5]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *UsageInfo) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*UsageInfo) ProtoMessage() {}

func (x *UsageInfo) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[5]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use UsageInfo.ProtoReflect.Descriptor instead.
func (*UsageInfo) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{5}
}

func (x *UsageInfo) GetPromptTokens() int32 {
	if x != nil {
		return x.PromptTokens
	}
	return 0
}

func (x *UsageInfo) GetCompletionTokens() int32 {
	if x != nil {
		return x.CompletionTokens
	}
	return 0
}

func (x *UsageInfo) GetCost() float64 {
	if x != nil {
		return x.Cost
	}
	return 0
}

type ResultInfo struct {
	state protoimpl.MessageState `protogen:"open.v1"`
	// JSON-encoded result document; plain text is wrapped by the client.
	Content       string `protobuf:"bytes,1,opt,name=content,proto3" json:"content,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *ResultInfo) Reset() {
	*x = ResultInfo{}
	mi := &file_runner_proto_msgTypes[6]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *ResultInfo) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*ResultInfo) ProtoMessage() {}

func (x *ResultInfo) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[6]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use ResultInfo.ProtoReflect.Descriptor instead.
func (*ResultInfo) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{6}
}

func (x *ResultInfo) GetContent() string {
	if x != nil {
		return x.Content
	}
	return ""
}

type ErrorInfo struct {
	state         protoimpl.MessageState `protogen:"open.v1"`
	Message       string                 `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
	Code          string                 `protobuf:"bytes,2,opt,name=code,proto3" json:"code,omitempty"`
	Retryable     bool                   `protobuf:"varint,3,opt,name=retryable,proto3" json:"retryable,omitempty"`
	unknownFields protoimpl.UnknownFields
	sizeCache     protoimpl.SizeCache
}

func (x *ErrorInfo) Reset() {
	*x = ErrorInfo{}
	mi := &file_runner_proto_msgTypes[7]
	ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
	ms.StoreMessageInfo(mi)
}

func (x *ErrorInfo) String() string {
	return protoimpl.X.MessageStringOf(x)
}

func (*ErrorInfo) ProtoMessage() {}

func (x *ErrorInfo) ProtoReflect() protoreflect.Message {
	mi := &file_runner_proto_msgTypes[7]
	if x != nil {
		ms := protoimpl.X.MessageStateOf(protoimpl.Pointer(x))
		if ms.LoadMessageInfo() == nil {
			ms.StoreMessageInfo(mi)
		}
		return ms
	}
	return mi.MessageOf(x)
}

// Deprecated: Use ErrorInfo.ProtoReflect.Descriptor instead.
func (*ErrorInfo) Descriptor() ([]byte, []int) {
	return file_runner_proto_rawDescGZIP(), []int{7}
}

func (x *ErrorInfo) GetMessage() string {
	if x != nil {
		return x.Message
	}
	return ""
}

func (x *ErrorInfo) GetCode() string {
	if x != nil {
		return x.Code
	}
	return ""
}

func (x *ErrorInfo) GetRetryable() bool {
	if x != nil {
		return x.Retryable
	}
	return false
}

var File_runner_proto protoreflect.FileDescriptor

const file_runner_proto_rawDesc = "" +
	"\n" +
	"\frunner.proto\x12\trunner.v1\"\xff\x01\n" +
	"\n" +
	"RunRequest\x12\x15\n" +
	"\x06job_id\x18\x01 \x01(\tR\x05jobId\x12\x1b\n" +
	"\ttenant_id\x18\x02 \x01(\tR\btenantId\x12\x19\n" +
	"\btrace_id\x18\x03 \x01(\tR\atraceId\x12\x12\n" +
	"\x04task\x18\x04 \x01(\tR\x04task\x12\x14\n" +
	"\x05model\x18\x05 \x01(\tR\x05model\x12<\n" +
	"\aoptions\x18\x06 \x03(\v2\".runner.v1.RunRequest.OptionsEntryR\aoptions\x1a:\n" +
	"\fOptionsEntry\x12\x10\n" +
	"\x03key\x18\x01 \x01(\tR\x03key\x12\x14\n" +
	"\x05value\x18\x02 \x01(\tR\x05value:\x028\x01\"\xc0\x02\n" +
	"\vRunResponse\x12*\n" +
	"\x04text\x18\x01 \x01(\v2\x14.runner.v1.TextDeltaH\x00R\x04text\x126\n" +
	"\bthinking\x18\x02 \x01(\v2\x18.runner.v1.ThinkingDeltaH\x00R\bthinking\x125\n" +
	"\bprogress\x18\x03 \x01(\v2\x17.runner.v1.ProgressInfoH\x00R\bprogress\x12,\n" +
	"\x05usage\x18\x04 \x01(\v2\x14.runner.v1.UsageInfoH\x00R\x05usage\x12/\n" +
	"\x06result\x18\x05 \x01(\v2\x15.runner.v1.ResultInfoH\x00R\x06result\x12,\n" +
	"\x05error\x18\x06 \x01(\v2\x14.runner.v1.ErrorInfoH\x00R\x05errorB\t\n" +
	"\acontent\"%\n" +
	"\tTextDelta\x12\x18\n" +
	"\acontent\x18\x01 \x01(\tR\acontent\")\n" +
	"\rThinkingDelta\x12\x18\n" +
	"\acontent\x18\x01 \x01(\tR\acontent\"@\n" +
	"\fProgressInfo\x12\x18\n" +
	"\apercent\x18\x01 \x01(\x05R\apercent\x12\x16\n" +
	"\x06detail\x18\x02 \x01(\tR\x06detail\"q\n" +
	"\tUsageInfo\x12#\n" +
	"\rprompt_tokens\x18\x01 \x01(\x05R\fpromptTokens\x12+\n" +
	"\x11completion_tokens\x18\x02 \x01(\x05R\x10completionTokens\x12\x12\n" +
	"\x04cost\x18\x03 \x01(\x01R\x04cost\"&\n" +
	"\n" +
	"ResultInfo\x12\x18\n" +
	"\acontent\x18\x01 \x01(\tR\acontent\"W\n" +
	"\tErrorInfo\x12\x18\n" +
	"\amessage\x18\x01 \x01(\tR\amessage\x12\x12\n" +
	"\x04code\x18\x02 \x01(\tR\x04code\x12\x1c\n" +
	"\tretryable\x18\x03 \x01(\bR\tretryable2G\n" +
	"\rRunnerService\x126\n" +
	"\x03Run\x12\x15.runner.v1.RunRequest\x1a\x16.runner.v1.RunResponse0\x01B+Z)github.com/openagora/agora/proto;runnerv1b\x06proto3"

var (
	file_runner_proto_rawDescOnce sync.Once
	file_runner_proto_rawDescData []byte
)

func file_runner_proto_rawDescGZIP() []byte {
	file_runner_proto_rawDescOnce.Do(func() {
		file_runner_proto_rawDescData = protoimpl.X.CompressGZIP(unsafe.Slice(unsafe.StringData(file_runner_proto_rawDesc), len(file_runner_proto_rawDesc)))
	})
	return file_runner_proto_rawDescData
}

var file_runner_proto_msgTypes = make([]protoimpl.MessageInfo, 9)
var file_runner_proto_goTypes = []any{
	(*RunRequest)(nil),    // 0: runner.v1.RunRequest
	(*RunResponse)(nil),   // 1: runner.v1.RunResponse
	(*TextDelta)(nil),     // 2: runner.v1.TextDelta
	(*ThinkingDelta)(nil), // 3: runner.v1.ThinkingDelta
	(*ProgressInfo)(nil),  // 4: runner.v1.ProgressInfo
	(*UsageInfo)(nil),     // 5: runner.v1.UsageInfo
	(*ResultInfo)(nil),    // 6: runner.v1.ResultInfo
	(*ErrorInfo)(nil),     // 7: runner.v1.ErrorInfo
	nil,                   // 8: runner.v1.RunRequest.OptionsEntry
}
var file_runner_proto_depIdxs = []int32{
	8, // 0: runner.v1.RunRequest.options:type_name -> runner.v1.RunRequest.OptionsEntry
	2, // 1: runner.v1.RunResponse.text:type_name -> runner.v1.TextDelta
	3, // 2: runner.v1.RunResponse.thinking:type_name -> runner.v1.ThinkingDelta
	4, // 3: runner.v1.RunResponse.progress:type_name -> runner.v1.ProgressInfo
	5, // 4: runner.v1.RunResponse.usage:type_name -> runner.v1.UsageInfo
	6, // 5: runner.v1.RunResponse.result:type_name -> runner.v1.ResultInfo
	7, // 6: runner.v1.RunResponse.error:type_name -> runner.v1.ErrorInfo
	0, // 7: runner.v1.RunnerService.Run:input_type -> runner.v1.RunRequest
	1, // 8: runner.v1.RunnerService.Run:output_type -> runner.v1.RunResponse
	8, // [8:9] is the sub-list for method output_type
	7, // [7:8] is the sub-list for method input_type
	7, // [7:7] is the sub-list for extension type_name
	7, // [7:7] is the sub-list for extension extendee
	0, // [0:7] is the sub-list for field type_name
}

func init() { file_runner_proto_init() }
func file_runner_proto_init() {
	if File_runner_proto != nil {
		return
	}
	file_runner_proto_msgTypes[1].OneofWrappers = []any{
		(*RunResponse_Text)(nil),
		(*RunResponse_Thinking)(nil),
		(*RunResponse_Progress)(nil),
		(*RunResponse_Usage)(nil),
		(*RunResponse_Result)(nil),
		(*RunResponse_Error)(nil),
	}
	type x struct{}
	out := protoimpl.TypeBuilder{
		File: protoimpl.DescBuilder{
			GoPackagePath: reflect.TypeOf(x{}).PkgPath(),
			RawDescriptor: unsafe.Slice(unsafe.StringData(file_runner_proto_rawDesc), len(file_runner_proto_rawDesc)),
			NumEnums:      0,
			NumMessages:   9,
			NumExtensions: 0,
			NumServices:   1,
		},
		GoTypes:           file_runner_proto_goTypes,
		DependencyIndexes: file_runner_proto_depIdxs,
		MessageInfos:      file_runner_proto_msgTypes,
	}.Build()
	File_runner_proto = out.File
	file_runner_proto_goTypes = nil
	file_runner_proto_depIdxs = nil
}
