package storage

import "fmt"

// Object key layout inside the artifact bucket. Upload keys embed the job
// identifier so concurrent jobs with the same source filename never collide.
const (
	videoPrefix      = "videos/"
	transcriptPrefix = "transcripts/"
	localizedPrefix  = "localized/"
)

// VideoKey returns the bucket key for an uploaded source video.
func VideoKey(jobID, filename string) string {
	return fmt.Sprintf("%s%s_%s", videoPrefix, jobID, filename)
}

// TranscriptKey returns the bucket key where the transcription service
// writes its output document for the given transcription job name.
func TranscriptKey(jobName string) string {
	return fmt.Sprintf("%s%s.json", transcriptPrefix, jobName)
}

// LocalizedKey returns the bucket key for the final localized video.
func LocalizedKey(jobID string) string {
	return fmt.Sprintf("%s%s_localized.mp4", localizedPrefix, jobID)
}

// URI renders an s3:// URI for a bucket and key.
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
